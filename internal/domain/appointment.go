// Package domain holds the persisted entities of the clinic bot.
package domain

import "time"

// AppointmentStatus is the lifecycle state of a booked appointment.
type AppointmentStatus string

// StatusConfirmed is the only status the booking flow produces.
const StatusConfirmed AppointmentStatus = "confirmed"

// Appointment is a confirmed point-in-time slot. No two appointments may
// share the same ScheduledAt; the database enforces this with a unique index.
type Appointment struct {
	ID          int64
	SenderID    string
	Service     string
	ScheduledAt time.Time
	Status      AppointmentStatus
	CreatedAt   time.Time
}

// HistoryEntry is the append-only per-sender record of an appointment
// outcome. SurveyScore is filled in once, when the matching survey arrives.
type HistoryEntry struct {
	ID          int64
	SenderID    string
	Service     string
	ScheduledAt time.Time
	Status      AppointmentStatus
	SurveyScore *int
	CreatedAt   time.Time
}

// SurveyResponse is a submitted satisfaction score for an appointment.
type SurveyResponse struct {
	ID            int64
	SenderID      string
	Service       string
	AppointmentAt time.Time
	Score         int
	CreatedAt     time.Time
}

// Patient is a contact record created on first message.
type Patient struct {
	ID          int64
	Phone       string
	FirstSeenAt time.Time
}
