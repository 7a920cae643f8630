// Package repository contains the SQL-backed stores of the clinic bot.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/vidasana/citabot/internal/domain"
)

// ErrSlotTaken indicates a confirmed appointment already occupies the slot.
var ErrSlotTaken = errors.New("appointment slot already taken")

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// AppointmentRepository defines persistence operations for appointments.
type AppointmentRepository interface {
	// ExistsAt reports whether a confirmed appointment occupies the exact timestamp.
	ExistsAt(ctx context.Context, at time.Time) (bool, error)
	// Create inserts the appointment, returning ErrSlotTaken when the slot's
	// unique index rejects it.
	Create(ctx context.Context, appointment *domain.Appointment) error
}

type appointmentRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewAppointmentRepository creates a new SQL-backed appointment repository.
func NewAppointmentRepository(db *sql.DB, log *slog.Logger) AppointmentRepository {
	return &appointmentRepository{
		db:  db,
		log: log,
	}
}

// ExistsAt checks the slot occupancy by exact timestamp equality.
func (r *appointmentRepository) ExistsAt(ctx context.Context, at time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM appointments WHERE scheduled_at = $1 AND status = 'confirmed'
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, at).Scan(&exists); err != nil {
		if r.log != nil {
			r.log.Error("failed to check slot occupancy", slog.Time("scheduled_at", at), slog.Any("error", err))
		}
		return false, fmt.Errorf("check slot occupancy: %w", err)
	}

	return exists, nil
}

// Create persists a new appointment record. The unique index on scheduled_at
// is the authoritative conflict check; a violation surfaces as ErrSlotTaken.
func (r *appointmentRepository) Create(ctx context.Context, appointment *domain.Appointment) error {
	const query = `
		INSERT INTO appointments (sender_id, service, scheduled_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	createdAt := appointment.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		appointment.SenderID,
		appointment.Service,
		appointment.ScheduledAt,
		appointment.Status,
		createdAt,
	).Scan(&appointment.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrSlotTaken
		}

		if r.log != nil {
			r.log.Error("failed to create appointment",
				slog.String("sender_id", appointment.SenderID),
				slog.Time("scheduled_at", appointment.ScheduledAt),
				slog.Any("error", err),
			)
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	appointment.CreatedAt = createdAt
	return nil
}
