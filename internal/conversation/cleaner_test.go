package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleaner_ClearsIdleSessions(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, "idle", &Session{SenderID: "idle", Step: StepSelectingService}))

	// ttl 0 treats every session as idle
	cleaner := NewCleaner(client, storage, testLogger(), 0, time.Minute)
	time.Sleep(10 * time.Millisecond)
	cleaner.cleanup(ctx)

	_, err := storage.Get(ctx, "idle")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCleaner_KeepsFreshSessions(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, "fresh", &Session{SenderID: "fresh", Step: StepSelectingService}))

	cleaner := NewCleaner(client, storage, testLogger(), time.Hour, time.Minute)
	cleaner.cleanup(ctx)

	session, err := storage.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, StepSelectingService, session.Step)
}

func TestExtractSenderID(t *testing.T) {
	testCases := []struct {
		key    string
		sender string
		ok     bool
	}{
		{"session:whatsapp:+521551234", "whatsapp:+521551234", true},
		{"session:lock:whatsapp:+521551234", "", false},
		{"session:", "", false},
		{"other:key", "", false},
	}

	for _, tc := range testCases {
		sender, ok := extractSenderID(tc.key)
		assert.Equal(t, tc.ok, ok, tc.key)
		assert.Equal(t, tc.sender, sender, tc.key)
	}
}
