// Package survey records post-appointment satisfaction scores.
package survey

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vidasana/citabot/internal/domain"
	"github.com/vidasana/citabot/internal/repository"
	"github.com/vidasana/citabot/pkg/metrics"
)

const (
	// ScoreMin and ScoreMax bound a valid satisfaction score.
	ScoreMin = 1
	ScoreMax = 5
)

var (
	// ErrInvalidScore indicates a score outside the [ScoreMin, ScoreMax] range.
	ErrInvalidScore = errors.New("survey score out of range")
	// ErrHistoryEntryMissing is a partial failure: the score was stored, but
	// no history entry matched the appointment to carry it.
	ErrHistoryEntryMissing = errors.New("survey stored but no matching history entry")
)

// Store persists survey responses.
type Store interface {
	Insert(ctx context.Context, response *domain.SurveyResponse) error
}

// HistoryUpdater back-fills the score into the matching history entry.
type HistoryUpdater interface {
	SetSurveyScore(ctx context.Context, senderID string, scheduledAt time.Time, score int) error
}

// Service captures survey responses and links them to appointment history.
type Service struct {
	store   Store
	history HistoryUpdater
	log     *slog.Logger
}

// NewService builds the survey service.
func NewService(store Store, history HistoryUpdater, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store:   store,
		history: history,
		log:     log,
	}
}

// Record stores the response and updates the matching history entry. A
// missing history entry does not lose the score; it surfaces as
// ErrHistoryEntryMissing so callers can decide how loudly to complain.
func (s *Service) Record(ctx context.Context, senderID, service string, appointmentAt time.Time, score int) error {
	if score < ScoreMin || score > ScoreMax {
		return ErrInvalidScore
	}

	response := &domain.SurveyResponse{
		SenderID:      senderID,
		Service:       service,
		AppointmentAt: appointmentAt,
		Score:         score,
	}
	if err := s.store.Insert(ctx, response); err != nil {
		return err
	}

	metrics.RecordSurveyScore(score)

	if err := s.history.SetSurveyScore(ctx, senderID, appointmentAt, score); err != nil {
		if errors.Is(err, repository.ErrHistoryEntryNotFound) {
			return ErrHistoryEntryMissing
		}
		return err
	}

	return nil
}
