// Package errors defines the application error taxonomy.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError carries the internal description of a failure together with the
// Spanish reply shown to the patient.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewStoreError wraps a persistence failure. This is the only error class
// treated as a system fault; everything conversational is absorbed into a
// reprompt before it gets here.
func NewStoreError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("store error: %s", underlyingMsg),
		UserMessage: "Ups... tenemos un problema técnico 😔 Por favor intenta de nuevo más tarde.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewSchedulerError wraps a deferred job enqueue failure.
func NewSchedulerError(cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     "survey job scheduling failed",
		UserMessage: "Ups... tenemos un problema técnico 😔 Por favor intenta de nuevo más tarde.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewStateError marks an operation that is not possible in the current
// conversation state, such as a concurrent message racing the session lock.
func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "Estoy terminando de atender tu mensaje anterior 🙏 Escríbeme de nuevo en un momento.",
		Severity:    SeverityLow,
		Retryable:   true,
		cause:       nil,
	}
}
