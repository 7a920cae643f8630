package conversation

import "time"

// Step identifies where a sender is in the booking conversation.
type Step string

const (
	// StepStart greets a new or reset conversation with the service menu.
	StepStart Step = "start"
	// StepSelectingService waits for a numeric service menu choice.
	StepSelectingService Step = "selecting_service"
	// StepAwaitingDateTime waits for a date/time expression or an availability request.
	StepAwaitingDateTime Step = "awaiting_datetime"
	// StepConfirmingBooking waits for the sender to confirm or discard the proposed slot.
	StepConfirmingBooking Step = "confirming_booking"
	// StepCompleted marks a finished booking; any further message restarts the flow.
	StepCompleted Step = "completed"
	// StepAwaitingSurveyScore waits for a 1-5 satisfaction score after the survey job fired.
	StepAwaitingSurveyScore Step = "awaiting_survey_score"
)

// StepLabels lists every step as a metric label, in flow order.
func StepLabels() []string {
	return []string{
		string(StepStart),
		string(StepSelectingService),
		string(StepAwaitingDateTime),
		string(StepConfirmingBooking),
		string(StepCompleted),
		string(StepAwaitingSurveyScore),
	}
}

// Session is the per-sender conversation state. AppointmentAt holds the
// candidate slot while a booking is in flight and the booked appointment
// time while a survey score is awaited.
type Session struct {
	SenderID      string     `json:"sender_id"`
	Step          Step       `json:"step"`
	Service       string     `json:"service,omitempty"`
	AppointmentAt *time.Time `json:"appointment_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// reset returns the session to a fresh Start state.
func (s *Session) reset() {
	s.Step = StepStart
	s.Service = ""
	s.AppointmentAt = nil
}
