package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/careflow/pkg/metrics"
	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/otelhelper"
	"github.com/dukex/careflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Executor runs one workflow against one ticket.
type Executor interface {
	Execute(ctx context.Context, workflowID, ticketID string, triggerContext map[string]any) (*models.WorkflowExecution, error)
}

// DispatchResult lists what a dispatch did. Executions holds every recorded run,
// including failed ones; Errors holds the matching workflows that did not complete.
type DispatchResult struct {
	Matched    []string
	Executions []*models.WorkflowExecution
	Errors     map[string]error
}

// Dispatcher matches ticket events against the trigger steps of active workflows.
type Dispatcher struct {
	persistence persistence.Persistence
	executor    Executor
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewDispatcher(p persistence.Persistence, executor Executor, logger *slog.Logger, tracer trace.Tracer) *Dispatcher {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Dispatcher{
		persistence: p,
		executor:    executor,
		logger:      logger.With("module", "trigger_dispatcher"),
		tracer:      tracer,
	}
}

// Dispatch executes, once each, every active workflow with a trigger step matching event and
// the ticket. A missing ticket is a no-op. Workflow runs are independent: a failing run is
// reported in the result and does not stop the others.
func (d *Dispatcher) Dispatch(ctx context.Context, event, ticketID string, eventContext map[string]any) (*DispatchResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "workflow.dispatch",
		attribute.String(otelhelper.EventNameKey, event),
		attribute.String(otelhelper.TicketIDKey, ticketID),
	)
	defer span.End()

	logger := d.logger.With("event", event, "ticket_id", ticketID)
	result := &DispatchResult{Errors: map[string]error{}}

	ticket, err := d.persistence.TicketRepository().GetByID(ctx, ticketID)
	if err != nil {
		if persistence.IsTicketNotFound(err) {
			logger.InfoContext(ctx, "Ticket not found, nothing to dispatch")

			return result, nil
		}

		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	workflows, err := d.persistence.WorkflowRepository().ListActive(ctx)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to list active workflows: %w", err)
	}

	for _, workflow := range workflows {
		if !d.matches(ctx, logger, workflow, event, ticket) {
			continue
		}

		result.Matched = append(result.Matched, workflow.ID)

		execution, err := d.executor.Execute(ctx, workflow.ID, ticket.ID, eventContext)
		if execution != nil {
			result.Executions = append(result.Executions, execution)
		}

		if err != nil {
			logger.ErrorContext(ctx, "Triggered workflow did not complete", "workflow_id", workflow.ID, "error", err)
			result.Errors[workflow.ID] = err
		}
	}

	metrics.AddDispatchMatches(event, len(result.Matched))
	span.SetAttributes(attribute.Int("careflow.dispatch.matched", len(result.Matched)))
	logger.InfoContext(ctx, "Dispatched ticket event", "matched", len(result.Matched), "failed", len(result.Errors))

	return result, nil
}

func (d *Dispatcher) matches(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, event string, ticket *models.Ticket) bool {
	for _, step := range workflow.TriggerSteps() {
		config, err := step.DecodeConfig()
		if err != nil {
			logger.WarnContext(ctx, "Skipping trigger step with invalid config", "workflow_id", workflow.ID, "step_id", step.ID, "error", err)

			continue
		}

		if TriggerMatches(config, event, ticket) {
			return true
		}
	}

	return false
}

// TriggerMatches reports whether a trigger step config fires for event on ticket:
// trigger_type must equal event and every listed condition must hold. Unknown
// condition types hold.
func TriggerMatches(config models.StepConfig, event string, ticket *models.Ticket) bool {
	if event == "" || config.String("trigger_type") != event {
		return false
	}

	for _, condition := range config.TriggerConditions() {
		value := fmt.Sprintf("%v", condition.Value)

		switch condition.Type {
		case models.TriggerCategoryMatch:
			if ticket.Category != value {
				return false
			}
		case models.TriggerPriorityMatch:
			if string(ticket.Priority) != value {
				return false
			}
		case models.TriggerDepartmentMatch:
			if ticket.DepartmentID != value {
				return false
			}
		}
	}

	return true
}
