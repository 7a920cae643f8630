package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidasana/citabot/internal/domain"
)

// ErrHistoryEntryNotFound indicates no history entry matched the sender and timestamp.
var ErrHistoryEntryNotFound = errors.New("history entry not found")

// HistoryRepository defines the append-only per-sender appointment log.
type HistoryRepository interface {
	// Append records an appointment outcome for the sender.
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	// SetSurveyScore fills in the survey score of the entry matching the
	// sender and appointment timestamp. The score is written once.
	SetSurveyScore(ctx context.Context, senderID string, scheduledAt time.Time, score int) error
}

type historyRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewHistoryRepository creates a new SQL-backed history repository.
func NewHistoryRepository(db *sql.DB, log *slog.Logger) HistoryRepository {
	return &historyRepository{
		db:  db,
		log: log,
	}
}

// Append inserts a history entry.
func (r *historyRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
		INSERT INTO history (sender_id, service, scheduled_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		entry.SenderID,
		entry.Service,
		entry.ScheduledAt,
		entry.Status,
		createdAt,
	).Scan(&entry.ID)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to append history entry",
				slog.String("sender_id", entry.SenderID),
				slog.Time("scheduled_at", entry.ScheduledAt),
				slog.Any("error", err),
			)
		}
		return fmt.Errorf("insert history entry: %w", err)
	}

	entry.CreatedAt = createdAt
	return nil
}

// SetSurveyScore updates the matching entry, or returns ErrHistoryEntryNotFound.
func (r *historyRepository) SetSurveyScore(ctx context.Context, senderID string, scheduledAt time.Time, score int) error {
	const query = `
		UPDATE history
		SET survey_score = $3
		WHERE sender_id = $1 AND scheduled_at = $2 AND survey_score IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, senderID, scheduledAt, score)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to set survey score",
				slog.String("sender_id", senderID),
				slog.Time("scheduled_at", scheduledAt),
				slog.Any("error", err),
			)
		}
		return fmt.Errorf("update history survey score: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update history survey score: %w", err)
	}
	if affected == 0 {
		return ErrHistoryEntryNotFound
	}

	return nil
}
