package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// SurveyScheduler enqueues the deferred survey prompt that fires a fixed
// delay after the appointment time.
type SurveyScheduler struct {
	manager Manager
	delay   time.Duration
	log     *slog.Logger
}

// NewSurveyScheduler builds the scheduler. delay is measured from the
// appointment time, not from booking time.
func NewSurveyScheduler(manager Manager, delay time.Duration, log *slog.Logger) *SurveyScheduler {
	return &SurveyScheduler{
		manager: manager,
		delay:   delay,
		log:     log,
	}
}

// ScheduleSurveyPrompt arms a one-shot task at appointmentAt + delay. The
// task carries no retries: a survey that cannot be delivered is dropped
// rather than nagging the patient at a random later time.
func (s *SurveyScheduler) ScheduleSurveyPrompt(ctx context.Context, senderID, service string, appointmentAt time.Time) error {
	task, err := NewSurveyPromptTask(senderID, service, appointmentAt)
	if err != nil {
		return err
	}

	runAt := appointmentAt.Add(s.delay)

	info, err := s.manager.Enqueue(ctx, task,
		asynq.ProcessAt(runAt),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return err
	}

	if s.log != nil {
		s.log.InfoContext(ctx, "survey prompt scheduled",
			slog.String("task_id", info.ID),
			slog.String("sender_id", senderID),
			slog.Time("run_at", runAt),
		)
	}

	return nil
}
