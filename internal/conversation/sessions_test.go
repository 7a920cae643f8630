package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)

	return NewManager(storage, testLogger(), client)
}

func TestManager_WithSession_CreatesFreshSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	err := m.WithSession(ctx, "sender", func(s *Session) error {
		assert.Equal(t, StepStart, s.Step)
		s.Step = StepSelectingService
		return nil
	})
	require.NoError(t, err)

	stored, err := m.Get(ctx, "sender")
	require.NoError(t, err)
	assert.Equal(t, StepSelectingService, stored.Step)
}

func TestManager_WithSession_RejectsInvalidTransition(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	err := m.WithSession(ctx, "sender", func(s *Session) error {
		s.Step = StepConfirmingBooking
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// the invalid mutation must not be persisted
	_, err = m.Get(ctx, "sender")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_WithSession_LockedSender(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)
	m := NewManager(storage, testLogger(), client)
	ctx := context.Background()

	lockKey := fmt.Sprintf(senderLockKeyPattern, "sender")
	require.NoError(t, client.SetNX(ctx, lockKey, 1, time.Minute).Err())

	err := m.WithSession(ctx, "sender", func(s *Session) error {
		t.Fatal("fn must not run while the sender is locked")
		return nil
	})
	assert.ErrorIs(t, err, ErrSessionLocked)
}

func TestManager_WithSession_ReleasesLock(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.WithSession(ctx, "sender", func(s *Session) error {
		s.Step = StepSelectingService
		return nil
	}))

	// the lock from the first call must be gone
	require.NoError(t, m.WithSession(ctx, "sender", func(s *Session) error {
		assert.Equal(t, StepSelectingService, s.Step)
		return nil
	}))
}

func TestManager_Overwrite_ReplacesMidFlowSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.WithSession(ctx, "sender", func(s *Session) error {
		s.Step = StepSelectingService
		return nil
	}))

	at := time.Date(2026, time.July, 25, 10, 30, 0, 0, time.UTC)
	err := m.Overwrite(ctx, "sender", &Session{
		Step:          StepAwaitingSurveyScore,
		Service:       "Medicina Interna",
		AppointmentAt: &at,
	})
	require.NoError(t, err)

	stored, err := m.Get(ctx, "sender")
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingSurveyScore, stored.Step)
	assert.Equal(t, "Medicina Interna", stored.Service)
	assert.Equal(t, "sender", stored.SenderID)
}

func TestManager_CountByStep(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sender := fmt.Sprintf("sender-%d", i)
		require.NoError(t, m.WithSession(ctx, sender, func(s *Session) error {
			s.Step = StepSelectingService
			return nil
		}))
	}
	require.NoError(t, m.WithSession(ctx, "idle", func(s *Session) error {
		return nil
	}))

	counts, err := m.CountByStep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[string(StepSelectingService)])
	assert.Equal(t, 1, counts[string(StepStart)])
}
