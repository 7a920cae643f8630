package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// PatientRepository keeps one contact record per phone number.
type PatientRepository interface {
	// Ensure creates the patient record on first contact; later calls are no-ops.
	Ensure(ctx context.Context, phone string) error
}

type patientRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPatientRepository creates a new SQL-backed patient repository.
func NewPatientRepository(db *sql.DB, log *slog.Logger) PatientRepository {
	return &patientRepository{
		db:  db,
		log: log,
	}
}

// Ensure upserts the patient keyed by phone.
func (r *patientRepository) Ensure(ctx context.Context, phone string) error {
	const query = `
		INSERT INTO patients (phone, first_seen_at)
		VALUES ($1, $2)
		ON CONFLICT (phone) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, phone, time.Now().UTC()); err != nil {
		if r.log != nil {
			r.log.Error("failed to ensure patient record", slog.String("phone", phone), slog.Any("error", err))
		}
		return fmt.Errorf("upsert patient: %w", err)
	}

	return nil
}
