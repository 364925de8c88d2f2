package metrics

import (
	"testing"
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Init()

	before := testutil.ToFloat64(executionsTotalCounter.WithLabelValues(string(models.ExecutionStatusFailed)))
	IncExecution(models.ExecutionStatusFailed)
	after := testutil.ToFloat64(executionsTotalCounter.WithLabelValues(string(models.ExecutionStatusFailed)))
	assert.InDelta(t, before+1, after, 0.0001)

	IncStep(models.StepTypeAction, StepResultContinue)
	assert.GreaterOrEqual(t, testutil.ToFloat64(stepsTotalCounter.WithLabelValues("action", StepResultContinue)), 1.0)

	AddDispatchMatches(models.EventTicketCreated, 2)
	assert.GreaterOrEqual(t, testutil.ToFloat64(dispatchMatchesCounter.WithLabelValues(models.EventTicketCreated)), 2.0)

	ObserveExecutionDuration(150 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(executionDurationMetric))
}

func TestAddDispatchMatches_BoundsEventLabel(t *testing.T) {
	Init()

	assert.Equal(t, models.EventScheduledCheck, EventLabel(models.EventScheduledCheck))
	assert.Equal(t, OtherEvent, EventLabel("ticket_exploded_42"))

	before := testutil.ToFloat64(dispatchMatchesCounter.WithLabelValues(OtherEvent))
	AddDispatchMatches("ticket_exploded_42", 1)
	AddDispatchMatches("ticket_exploded_43", 2)
	assert.InDelta(t, before+3, testutil.ToFloat64(dispatchMatchesCounter.WithLabelValues(OtherEvent)), 0.0001)

	series := testutil.CollectAndCount(dispatchMatchesCounter)
	AddDispatchMatches(models.EventTicketUpdated+"_unmatched", 0)
	assert.Equal(t, series, testutil.CollectAndCount(dispatchMatchesCounter))
}
