package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_SaveAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	at := time.Date(2026, time.July, 25, 10, 30, 0, 0, time.UTC)
	session := &Session{
		SenderID:      "whatsapp:+5215512345678",
		Step:          StepConfirmingBooking,
		Service:       "Medicina Ocupacional",
		AppointmentAt: &at,
	}

	err := storage.Save(ctx, session.SenderID, session)
	require.NoError(t, err)
	assert.False(t, session.UpdatedAt.IsZero())

	result, err := storage.Get(ctx, session.SenderID)
	require.NoError(t, err)
	assert.Equal(t, session.SenderID, result.SenderID)
	assert.Equal(t, StepConfirmingBooking, result.Step)
	assert.Equal(t, "Medicina Ocupacional", result.Service)
	if assert.NotNil(t, result.AppointmentAt) {
		assert.True(t, result.AppointmentAt.Equal(at))
	}
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)

	session, err := storage.Get(context.Background(), "whatsapp:+0000")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_Clear(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, "sender", &Session{SenderID: "sender", Step: StepStart}))
	require.NoError(t, storage.Clear(ctx, "sender"))

	_, err := storage.Get(ctx, "sender")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_AllSkipsLockKeys(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, "a", &Session{SenderID: "a", Step: StepStart}))
	require.NoError(t, storage.Save(ctx, "b", &Session{SenderID: "b", Step: StepSelectingService}))

	// lock keys share the session prefix but hold no JSON payload
	require.NoError(t, client.Set(ctx, "session:lock:a", 1, time.Minute).Err())

	sessions, err := storage.All(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.SenderID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
