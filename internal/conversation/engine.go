package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vidasana/citabot/internal/booking"
	apperrors "github.com/vidasana/citabot/internal/errors"
	"github.com/vidasana/citabot/internal/survey"
	"github.com/vidasana/citabot/internal/timeparse"
	"github.com/vidasana/citabot/pkg/config"
	"github.com/vidasana/citabot/pkg/metrics"
)

const availabilityTrigger = "ver disponibilidad"

const (
	outcomeAdvanced = "advanced"
	outcomeReprompt = "reprompt"
	outcomeBooked   = "booked"
	outcomeConflict = "conflict"
	outcomeSurvey   = "survey_recorded"
	outcomeReset    = "reset"
	outcomeError    = "error"
)

// Booker reserves an appointment slot.
type Booker interface {
	Book(ctx context.Context, senderID, service string, at time.Time) (booking.Result, error)
}

// SurveyRecorder stores a satisfaction score for a past appointment.
type SurveyRecorder interface {
	Record(ctx context.Context, senderID, service string, appointmentAt time.Time, score int) error
}

// PatientRegistry tracks sender identities as clinic patients.
type PatientRegistry interface {
	Ensure(ctx context.Context, phone string) error
}

// Engine is the conversation orchestrator. Given a sender and their message
// it advances the sender's session and produces the reply text. Every
// conversational miss is absorbed into a reprompt; only store faults surface
// through the error handler, and those too come back as reply text.
type Engine struct {
	sessions *Manager
	menu     *config.ServiceMenu
	booker   Booker
	surveys  SurveyRecorder
	patients PatientRegistry
	errs     *apperrors.Handler
	now      func() time.Time
	log      *slog.Logger
}

// NewEngine builds the conversation engine.
func NewEngine(
	sessions *Manager,
	menu *config.ServiceMenu,
	booker Booker,
	surveys SurveyRecorder,
	patients PatientRegistry,
	errs *apperrors.Handler,
	log *slog.Logger,
) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		sessions: sessions,
		menu:     menu,
		booker:   booker,
		surveys:  surveys,
		patients: patients,
		errs:     errs,
		now:      time.Now,
		log:      log,
	}
}

// WithClock overrides the engine's time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}

	return e
}

// Handle processes one inbound message and returns the reply text.
func (e *Engine) Handle(ctx context.Context, senderID, text string) string {
	message := strings.ToLower(strings.TrimSpace(text))

	if e.patients != nil {
		if err := e.patients.Ensure(ctx, senderID); err != nil {
			e.log.Warn("patient registration failed",
				slog.String("sender_id", senderID),
				slog.Any("error", err),
			)
		}
	}

	var (
		reply   string
		outcome string
		step    Step
	)

	err := e.sessions.WithSession(ctx, senderID, func(session *Session) error {
		step = session.Step

		var dispatchErr error
		reply, outcome, dispatchErr = e.dispatch(ctx, session, message)
		return dispatchErr
	})
	if err != nil {
		metrics.RecordMessage(string(step), outcomeError)

		if errors.Is(err, ErrSessionLocked) {
			return e.errs.Handle(ctx, apperrors.NewStateError("concurrent message for sender"))
		}

		return e.errs.Handle(ctx, err)
	}

	metrics.RecordMessage(string(step), outcome)

	return reply
}

func (e *Engine) dispatch(ctx context.Context, session *Session, message string) (string, string, error) {
	switch session.Step {
	case StepStart:
		return e.handleStart(session)
	case StepSelectingService:
		return e.handleSelectingService(session, message)
	case StepAwaitingDateTime:
		return e.handleAwaitingDateTime(session, message)
	case StepConfirmingBooking:
		return e.handleConfirmingBooking(ctx, session, message)
	case StepAwaitingSurveyScore:
		return e.handleAwaitingSurveyScore(ctx, session, message)
	default:
		// Completed sessions and unknown steps both restart: the next
		// message from the sender begins a fresh booking.
		session.reset()
		return restartReply(), outcomeReset, nil
	}
}

func (e *Engine) handleStart(session *Session) (string, string, error) {
	session.Step = StepSelectingService

	return welcomeReply(e.menu.ClinicName(), e.menu.Services()), outcomeAdvanced, nil
}

func (e *Engine) handleSelectingService(session *Session, message string) (string, string, error) {
	services := e.menu.Services()

	choice, err := strconv.Atoi(message)
	if err != nil || choice < 1 || choice > len(services) {
		return invalidSelectionReply(len(services)), outcomeReprompt, nil
	}

	session.Service = services[choice-1]
	session.Step = StepAwaitingDateTime

	return serviceSelectedReply(session.Service), outcomeAdvanced, nil
}

func (e *Engine) handleAwaitingDateTime(session *Session, message string) (string, string, error) {
	if strings.Contains(message, availabilityTrigger) {
		return availabilityReply(e.menu.SuggestedSlots()), outcomeReprompt, nil
	}

	at, err := timeparse.Parse(message, e.now())
	if err != nil {
		return invalidFormatReply(), outcomeReprompt, nil
	}

	session.AppointmentAt = &at
	session.Step = StepConfirmingBooking

	return confirmPromptReply(session.Service, at), outcomeAdvanced, nil
}

func (e *Engine) handleConfirmingBooking(ctx context.Context, session *Session, message string) (string, string, error) {
	switch message {
	case "sí", "si":
		if session.AppointmentAt == nil {
			session.reset()
			return restartReply(), outcomeReset, nil
		}
		at := *session.AppointmentAt

		result, err := e.booker.Book(ctx, session.SenderID, session.Service, at)
		if err != nil {
			return "", "", apperrors.NewStoreError(err)
		}

		if result == booking.ResultConflict {
			session.AppointmentAt = nil
			session.Step = StepAwaitingDateTime
			return slotTakenReply(), outcomeConflict, nil
		}

		session.Step = StepCompleted
		return confirmedReply(session.Service, at), outcomeBooked, nil

	case "no":
		session.AppointmentAt = nil
		session.Step = StepAwaitingDateTime
		return changeTimeReply(), outcomeAdvanced, nil

	default:
		return confirmRepromptReply(), outcomeReprompt, nil
	}
}

func (e *Engine) handleAwaitingSurveyScore(ctx context.Context, session *Session, message string) (string, string, error) {
	if session.AppointmentAt == nil {
		session.reset()
		return restartReply(), outcomeReset, nil
	}

	score, err := strconv.Atoi(message)
	if err != nil {
		return surveyNonNumericReply(), outcomeReprompt, nil
	}

	err = e.surveys.Record(ctx, session.SenderID, session.Service, *session.AppointmentAt, score)
	switch {
	case errors.Is(err, survey.ErrInvalidScore):
		return surveyRangeReply(), outcomeReprompt, nil
	case errors.Is(err, survey.ErrHistoryEntryMissing):
		// Score is stored; only the history back-fill is missing.
		e.log.Warn("survey recorded without matching history entry",
			slog.String("sender_id", session.SenderID),
			slog.Time("appointment_at", *session.AppointmentAt),
		)
	case err != nil:
		return "", "", apperrors.NewStoreError(err)
	}

	session.reset()

	return surveyThanksReply(), outcomeSurvey, nil
}
