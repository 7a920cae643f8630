package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidasana/citabot/internal/domain"
)

// SurveyRepository persists submitted satisfaction scores.
type SurveyRepository interface {
	Insert(ctx context.Context, response *domain.SurveyResponse) error
}

type surveyRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSurveyRepository creates a new SQL-backed survey repository.
func NewSurveyRepository(db *sql.DB, log *slog.Logger) SurveyRepository {
	return &surveyRepository{
		db:  db,
		log: log,
	}
}

// Insert stores the survey response.
func (r *surveyRepository) Insert(ctx context.Context, response *domain.SurveyResponse) error {
	const query = `
		INSERT INTO surveys (sender_id, service, appointment_at, score, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	createdAt := response.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		response.SenderID,
		response.Service,
		response.AppointmentAt,
		response.Score,
		createdAt,
	).Scan(&response.ID)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to insert survey response",
				slog.String("sender_id", response.SenderID),
				slog.Int("score", response.Score),
				slog.Any("error", err),
			)
		}
		return fmt.Errorf("insert survey response: %w", err)
	}

	response.CreatedAt = createdAt
	return nil
}
