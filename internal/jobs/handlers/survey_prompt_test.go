package handlers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidasana/citabot/internal/conversation"
	"github.com/vidasana/citabot/internal/jobs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) (*conversation.Manager, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	storage := conversation.NewRedisStorage(client, testLogger(), time.Hour)
	return conversation.NewManager(storage, testLogger(), client), client
}

func TestSurveyPromptHandler_ArmsSurveyStep(t *testing.T) {
	sessions, _ := setup(t)
	ctx := context.Background()

	// the sender is mid-flow on an unrelated booking when the job fires
	require.NoError(t, sessions.WithSession(ctx, "sender", func(s *conversation.Session) error {
		s.Step = conversation.StepSelectingService
		return nil
	}))

	at := time.Date(2026, time.July, 25, 10, 30, 0, 0, time.UTC)
	task, err := jobs.NewSurveyPromptTask("sender", "Medicina Interna", at)
	require.NoError(t, err)

	handler := NewSurveyPromptHandler(sessions, testLogger())
	require.NoError(t, handler.ProcessTask(ctx, task))

	session, err := sessions.Get(ctx, "sender")
	require.NoError(t, err)
	assert.Equal(t, conversation.StepAwaitingSurveyScore, session.Step)
	assert.Equal(t, "Medicina Interna", session.Service)
	if assert.NotNil(t, session.AppointmentAt) {
		assert.True(t, session.AppointmentAt.Equal(at))
	}
}

func TestSurveyPromptHandler_BadPayload(t *testing.T) {
	sessions, _ := setup(t)

	handler := NewSurveyPromptHandler(sessions, testLogger())
	task := asynq.NewTask(jobs.TaskTypeSurveyPrompt, []byte("{not json"))

	err := handler.ProcessTask(context.Background(), task)
	assert.Error(t, err)
}

// A lock held past the retry budget drops the survey; the task must not be
// reported as failed, that would re-queue it.
func TestSurveyPromptHandler_LockedSenderGivesUp(t *testing.T) {
	sessions, client := setup(t)
	ctx := context.Background()

	require.NoError(t, client.SetNX(ctx, "session:lock:sender", 1, time.Minute).Err())

	at := time.Date(2026, time.July, 25, 10, 30, 0, 0, time.UTC)
	task, err := jobs.NewSurveyPromptTask("sender", "Medicina Interna", at)
	require.NoError(t, err)

	handler := NewSurveyPromptHandler(sessions, testLogger())
	assert.NoError(t, handler.ProcessTask(ctx, task))

	_, err = sessions.Get(ctx, "sender")
	assert.ErrorIs(t, err, conversation.ErrSessionNotFound)
}
