// Package metrics exposes Prometheus instruments for workflow executions and trigger dispatch.
package metrics

import (
	"sync"
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	executionsTotalCounter  *prometheus.CounterVec
	stepsTotalCounter       *prometheus.CounterVec
	dispatchMatchesCounter  *prometheus.CounterVec
	executionDurationMetric prometheus.Histogram
)

// Step outcomes recorded by IncStep.
const (
	StepResultContinue = "continue"
	StepResultStop     = "stop"
	StepResultError    = "error"
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		executionsTotalCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "careflow_executions_total",
				Help: "Total number of workflow executions by terminal status.",
			},
			[]string{"status"},
		)

		stepsTotalCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "careflow_steps_total",
				Help: "Total number of interpreted steps by step type and outcome.",
			},
			[]string{"step_type", "result"},
		)

		dispatchMatchesCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "careflow_dispatch_matches_total",
				Help: "Total number of workflows matched by trigger dispatch per event.",
			},
			[]string{"event"},
		)

		executionDurationMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "careflow_execution_duration_seconds",
				Help:    "Duration of workflow executions in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		prometheus.MustRegister(
			executionsTotalCounter,
			stepsTotalCounter,
			dispatchMatchesCounter,
			executionDurationMetric,
		)

		for _, status := range []models.ExecutionStatus{
			models.ExecutionStatusCompleted,
			models.ExecutionStatusFailed,
		} {
			executionsTotalCounter.WithLabelValues(string(status))
		}
	})
}

func IncExecution(status models.ExecutionStatus) {
	Init()
	executionsTotalCounter.WithLabelValues(string(status)).Inc()
}

func IncStep(stepType models.StepType, result string) {
	Init()
	stepsTotalCounter.WithLabelValues(string(stepType), result).Inc()
}

// OtherEvent labels dispatches of event names careflow does not define.
const OtherEvent = "other"

// EventLabel bounds the event label to the known ticket lifecycle events.
func EventLabel(event string) string {
	switch event {
	case models.EventTicketCreated, models.EventTicketUpdated, models.EventTemplateUsed,
		models.EventManual, models.EventScheduledCheck:
		return event
	default:
		return OtherEvent
	}
}

// AddDispatchMatches counts workflows matched by a dispatch. Dispatches matching nothing are not recorded.
func AddDispatchMatches(event string, matches int) {
	if matches <= 0 {
		return
	}

	Init()
	dispatchMatchesCounter.WithLabelValues(EventLabel(event)).Add(float64(matches))
}

func ObserveExecutionDuration(d time.Duration) {
	Init()
	executionDurationMetric.Observe(d.Seconds())
}
