package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vidasana/citabot/internal/conversation"
	"github.com/vidasana/citabot/internal/jobs"
)

const (
	lockRetryAttempts = 3
	lockRetryDelay    = 100 * time.Millisecond
)

// SurveyPromptHandler flips the sender's session into the survey step. No
// outbound message is pushed; the survey question is delivered as the reply
// to whatever the patient writes next.
type SurveyPromptHandler struct {
	sessions *conversation.Manager
	log      *slog.Logger
}

func NewSurveyPromptHandler(sessions *conversation.Manager, log *slog.Logger) *SurveyPromptHandler {
	if log == nil {
		log = slog.Default()
	}

	return &SurveyPromptHandler{
		sessions: sessions,
		log:      log,
	}
}

func (h *SurveyPromptHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.SurveyPromptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "survey prompt: failed to decode payload",
			slog.String("task_type", t.Type()),
			slog.String("error", err.Error()),
		)
		return err
	}

	appointmentAt := payload.AppointmentAt
	session := &conversation.Session{
		SenderID:      payload.SenderID,
		Step:          conversation.StepAwaitingSurveyScore,
		Service:       payload.Service,
		AppointmentAt: &appointmentAt,
	}

	// The per-sender lock may be held by an in-flight message. A short retry
	// covers that window; past it the survey is dropped, not re-queued.
	var err error
	for attempt := 1; attempt <= lockRetryAttempts; attempt++ {
		err = h.sessions.Overwrite(ctx, payload.SenderID, session)
		if !errors.Is(err, conversation.ErrSessionLocked) {
			break
		}
		time.Sleep(lockRetryDelay)
	}
	if err != nil {
		h.log.ErrorContext(ctx, "survey prompt: failed to switch session",
			slog.String("sender_id", payload.SenderID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	h.log.InfoContext(ctx, "survey armed",
		slog.String("sender_id", payload.SenderID),
		slog.String("service", payload.Service),
		slog.Time("appointment_at", payload.AppointmentAt),
	)

	return nil
}
