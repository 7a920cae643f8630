// Package booking implements slot reservation with conflict detection.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vidasana/citabot/internal/domain"
	"github.com/vidasana/citabot/internal/repository"
	"github.com/vidasana/citabot/pkg/metrics"
)

// Result is the outcome of a booking attempt.
type Result string

const (
	// ResultConfirmed means the slot was free and the appointment is booked.
	ResultConfirmed Result = "confirmed"
	// ResultConflict means the exact timestamp is already taken.
	ResultConflict Result = "conflict"
)

// AppointmentStore is the conflict-authoritative appointment persistence.
type AppointmentStore interface {
	ExistsAt(ctx context.Context, at time.Time) (bool, error)
	Create(ctx context.Context, appointment *domain.Appointment) error
}

// HistoryStore appends appointment outcomes to the per-sender log.
type HistoryStore interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
}

// SurveyScheduler enqueues the deferred post-appointment survey job.
type SurveyScheduler interface {
	ScheduleSurveyPrompt(ctx context.Context, senderID, service string, appointmentAt time.Time) error
}

// Service books appointments as point-in-time slots.
type Service struct {
	appointments AppointmentStore
	history      HistoryStore
	scheduler    SurveyScheduler
	log          *slog.Logger
}

// NewService builds the booking service.
func NewService(appointments AppointmentStore, history HistoryStore, scheduler SurveyScheduler, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		appointments: appointments,
		history:      history,
		scheduler:    scheduler,
		log:          log,
	}
}

// Book reserves the slot for the sender. The pre-check keeps the common case
// cheap; the unique index on scheduled_at is the authoritative guard, so an
// insert rejected as a duplicate is treated exactly like a pre-check hit.
func (s *Service) Book(ctx context.Context, senderID, service string, at time.Time) (Result, error) {
	exists, err := s.appointments.ExistsAt(ctx, at)
	if err != nil {
		return "", err
	}
	if exists {
		metrics.RecordBooking(string(ResultConflict))
		return ResultConflict, nil
	}

	appointment := &domain.Appointment{
		SenderID:    senderID,
		Service:     service,
		ScheduledAt: at,
		Status:      domain.StatusConfirmed,
	}

	if err := s.appointments.Create(ctx, appointment); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			metrics.RecordBooking(string(ResultConflict))
			return ResultConflict, nil
		}
		return "", err
	}

	// The history append and the survey enqueue belong to the booking as one
	// logical unit. A failure past the appointment insert leaves a degraded
	// but usable record, so it is logged rather than rolled back.
	entry := &domain.HistoryEntry{
		SenderID:    senderID,
		Service:     service,
		ScheduledAt: at,
		Status:      domain.StatusConfirmed,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.log.Error("booking confirmed but history append failed",
			slog.String("sender_id", senderID),
			slog.Time("scheduled_at", at),
			slog.Any("error", err),
		)
	}

	if err := s.scheduler.ScheduleSurveyPrompt(ctx, senderID, service, at); err != nil {
		s.log.Error("booking confirmed but survey job enqueue failed",
			slog.String("sender_id", senderID),
			slog.Time("scheduled_at", at),
			slog.Any("error", err),
		)
	}

	s.log.Info("appointment confirmed",
		slog.String("sender_id", senderID),
		slog.String("service", service),
		slog.Time("scheduled_at", at),
	)
	metrics.RecordBooking(string(ResultConfirmed))

	return ResultConfirmed, nil
}
