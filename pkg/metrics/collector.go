// Package metrics exposes Prometheus instrumentation for the bot.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_messages_total",
			Help: "Total number of inbound messages labeled by conversation step and outcome",
		},
		[]string{"step", "outcome"},
	)
	stepTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_step_transitions_total",
			Help: "Total number of conversation step transitions",
		},
		[]string{"from", "to"},
	)
	bookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Total number of booking attempts labeled by result",
		},
		[]string{"result"},
	)
	surveyScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "survey_scores",
			Help:    "Distribution of submitted satisfaction scores",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Current number of stored conversation sessions",
		},
	)
	sessionsByStep = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_step",
			Help: "Number of sessions per conversation step",
		},
		[]string{"step"},
	)
)

// RecordMessage increments the inbound message counter.
func RecordMessage(step, outcome string) {
	if step == "" {
		step = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}

	messagesTotal.WithLabelValues(step, outcome).Inc()
}

// RecordStepTransition tracks conversation step transitions.
func RecordStepTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stepTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordBooking increments the booking counter for the given result.
func RecordBooking(result string) {
	if result == "" {
		result = "unknown"
	}

	bookingsTotal.WithLabelValues(result).Inc()
}

// RecordSurveyScore observes a submitted satisfaction score.
func RecordSurveyScore(score int) {
	surveyScores.Observe(float64(score))
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// StepCountFunc reports the number of stored sessions per conversation step.
type StepCountFunc func(ctx context.Context) (map[string]int, error)

// SessionCollector periodically gathers session counts and emits gauge metrics.
type SessionCollector struct {
	counts StepCountFunc

	// trackedSteps are always emitted, zero included, so a step draining to
	// nothing is visible rather than a missing series.
	trackedSteps []string
}

// NewSessionCollector builds a collector bound to the provided count source.
func NewSessionCollector(counts StepCountFunc, trackedSteps []string) *SessionCollector {
	return &SessionCollector{
		counts:       counts,
		trackedSteps: trackedSteps,
	}
}

// Run polls the session store every 10 seconds until ctx is cancelled.
func (c *SessionCollector) Run(ctx context.Context) {
	if c == nil || c.counts == nil {
		return
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (c *SessionCollector) collect(ctx context.Context) error {
	stepCounts, err := c.counts(ctx)
	if err != nil {
		return err
	}

	total := 0
	for _, count := range stepCounts {
		total += count
	}
	activeSessions.Set(float64(total))

	sessionsByStep.Reset()

	for _, label := range c.trackedSteps {
		sessionsByStep.WithLabelValues(label).Set(float64(stepCounts[label]))
		delete(stepCounts, label)
	}

	for label, count := range stepCounts {
		sessionsByStep.WithLabelValues(label).Set(float64(count))
	}

	return nil
}
