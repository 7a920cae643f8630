// Package jobs wraps the asynq queue used for deferred work.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeSurveyPrompt arms the post-appointment satisfaction survey.
	TaskTypeSurveyPrompt = "survey:prompt"
)

const (
	QueueDefault = "default"
)

// SurveyPromptPayload carries the appointment the survey refers to.
type SurveyPromptPayload struct {
	SenderID      string    `json:"sender_id"`
	Service       string    `json:"service"`
	AppointmentAt time.Time `json:"appointment_at"`
}

// NewSurveyPromptTask builds the one-shot survey prompt task.
func NewSurveyPromptTask(senderID, service string, appointmentAt time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(SurveyPromptPayload{
		SenderID:      senderID,
		Service:       service,
		AppointmentAt: appointmentAt,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeSurveyPrompt, payload, asynq.Queue(QueueDefault)), nil
}
