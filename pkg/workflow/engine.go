// Package workflow interprets ticket workflows: it walks a chain of trigger, condition and
// action steps against one ticket and records the run as a WorkflowExecution.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/careflow/pkg/eventbus"
	"github.com/dukex/careflow/pkg/events"
	"github.com/dukex/careflow/pkg/metrics"
	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/otelhelper"
	"github.com/dukex/careflow/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxSteps bounds the number of steps a single execution may visit.
const DefaultMaxSteps = 1000

var (
	ErrWorkflowInactive = errors.New("workflow is inactive")
	ErrChainTooLong     = errors.New("step chain exceeds the maximum step count")
	ErrForeignStep      = errors.New("next step belongs to another workflow")
)

// StepError reports the step whose handler failed.
type StepError struct {
	StepID   string
	StepType models.StepType
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s (%s): %v", e.StepID, e.StepType, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ActionHandler applies an action to the ticket. Returning false stops the chain as completed;
// an error fails the execution.
type ActionHandler func(ctx context.Context, ticket *models.Ticket, config models.StepConfig) (bool, error)

// ConditionHandler evaluates a predicate on the ticket. Returning false stops the chain as completed.
type ConditionHandler func(ctx context.Context, ticket *models.Ticket, config models.StepConfig) (bool, error)

// Engine is the workflow interpreter. Execute is synchronous and safe for concurrent use;
// concurrent runs against the same ticket race on its fields (last write wins).
type Engine struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	tracer      trace.Tracer
	publisher   eventbus.EventPublisher
	assigner    *AutoAssigner

	actions    map[models.ActionType]ActionHandler
	conditions map[models.ConditionType]ConditionHandler

	maxSteps int
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps overrides DefaultMaxSteps. Values below 1 are ignored.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		if maxSteps > 0 {
			e.maxSteps = maxSteps
		}
	}
}

// WithPublisher emits execution lifecycle events on the given publisher.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithClock replaces time.Now, used for created_at comparisons and execution timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithAction registers or replaces the handler of an action type.
func WithAction(actionType models.ActionType, handler ActionHandler) Option {
	return func(e *Engine) { e.actions[actionType] = handler }
}

// WithCondition registers or replaces the handler of a condition type.
func WithCondition(conditionType models.ConditionType, handler ConditionHandler) Option {
	return func(e *Engine) { e.conditions[conditionType] = handler }
}

// NewEngine creates an interpreter over the given stores.
func NewEngine(p persistence.Persistence, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		persistence: p,
		logger:      logger.With("module", "workflow_engine"),
		tracer:      otelhelper.NoopTracer(),
		maxSteps:    DefaultMaxSteps,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}

	engine.assigner = NewAutoAssigner(p.TechnicianRepository())
	engine.actions = engine.defaultActions()
	engine.conditions = engine.defaultConditions()

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Execute runs workflowID against ticketID.
//
// A missing or inactive workflow, or a missing ticket, returns an error and records nothing.
// Otherwise exactly one execution is recorded and always ends completed or failed before
// Execute returns, even when ctx is cancelled mid-chain: the record is written with a
// context detached from cancellation. A failed execution is returned together with the
// error that failed it. A chain cut short by a step returning false completes with
// Stopped set; execution.Succeeded reports the run's boolean outcome.
func (e *Engine) Execute(ctx context.Context, workflowID, ticketID string, triggerContext map[string]any) (*models.WorkflowExecution, error) {
	logger := e.logger.With("workflow_id", workflowID, "ticket_id", ticketID)

	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	if !workflow.Active {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowInactive, workflowID)
	}

	ticket, err := e.persistence.TicketRepository().GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	execution := &models.WorkflowExecution{
		ID:            e.newID(),
		WorkflowID:    workflow.ID,
		TicketID:      ticket.ID,
		Status:        models.ExecutionStatusRunning,
		Context:       copyContext(triggerContext),
		ExecutedSteps: []string{},
		StartedAt:     e.now(),
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.TicketIDKey, ticket.ID),
	)
	defer span.End()

	logger = logger.With("execution_id", execution.ID)
	recordCtx := context.WithoutCancel(ctx)

	err = e.persistence.ExecutionRepository().Save(recordCtx, execution)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to record execution: %w", err)
	}

	logger.InfoContext(ctx, "Starting workflow execution")
	e.publish(ctx, logger, ticket.ID, &events.WorkflowExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionStartedEvent),
		WorkflowID:  workflow.ID,
		ExecutionID: execution.ID,
		TicketID:    ticket.ID,
		Context:     execution.Context,
	})

	stopped, runErr := e.run(ctx, recordCtx, logger, workflow, ticket, execution)
	if runErr != nil {
		execution.Fail(runErr, e.now())
	} else {
		execution.Stopped = stopped
		execution.Complete(e.now())
	}

	duration := execution.CompletedAt.Sub(execution.StartedAt)
	metrics.IncExecution(execution.Status)
	metrics.ObserveExecutionDuration(duration)

	saveErr := e.persistence.ExecutionRepository().Save(recordCtx, execution)
	if saveErr != nil {
		logger.ErrorContext(ctx, "Failed to record execution outcome", "error", saveErr, "status", execution.Status)
	}

	if runErr != nil {
		logger.ErrorContext(ctx, "Workflow execution failed", "error", runErr, "executed_steps", len(execution.ExecutedSteps))
		otelhelper.SetError(span, runErr)
		e.publish(ctx, logger, ticket.ID, &events.WorkflowExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionFailedEvent),
			WorkflowID:  workflow.ID,
			ExecutionID: execution.ID,
			TicketID:    ticket.ID,
			StepID:      failedStepID(runErr),
			Error:       runErr.Error(),
			Duration:    duration,
		})

		return execution, fmt.Errorf("execution %s failed: %w", execution.ID, runErr)
	}

	logger.InfoContext(ctx, "Workflow execution completed", "executed_steps", len(execution.ExecutedSteps), "stopped", stopped)
	otelhelper.SetOutcome(span, string(execution.Status))
	e.publish(ctx, logger, ticket.ID, &events.WorkflowExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.WorkflowExecutionCompletedEvent),
		WorkflowID:    workflow.ID,
		ExecutionID:   execution.ID,
		TicketID:      ticket.ID,
		ExecutedSteps: execution.ExecutedSteps,
		Duration:      duration,
	})

	if saveErr != nil {
		return execution, fmt.Errorf("failed to record execution outcome: %w", saveErr)
	}

	return execution, nil
}

// run walks the chain from the entry step and reports whether a step stopped it. Each
// visited step is recorded on the execution through recordCtx and persisted before its
// handler runs; handler effects commit on their own.
func (e *Engine) run(
	ctx context.Context,
	recordCtx context.Context,
	logger *slog.Logger,
	workflow *models.Workflow,
	ticket *models.Ticket,
	execution *models.WorkflowExecution,
) (bool, error) {
	step := workflow.EntryStep()
	if step == nil {
		logger.InfoContext(ctx, "Workflow has no entry step")

		return false, nil
	}

	for visited := 0; step != nil; visited++ {
		if visited >= e.maxSteps {
			return false, fmt.Errorf("%w: visited %d steps", ErrChainTooLong, visited)
		}

		stepID := step.ID
		execution.CurrentStepID = &stepID
		execution.ExecutedSteps = append(execution.ExecutedSteps, step.ID)

		err := e.persistence.ExecutionRepository().Save(recordCtx, execution)
		if err != nil {
			return false, fmt.Errorf("failed to record current step: %w", err)
		}

		proceed, err := e.runStep(ctx, logger, ticket, step)
		if err != nil {
			return false, &StepError{StepID: step.ID, StepType: step.StepType, Err: err}
		}

		if !proceed {
			logger.InfoContext(ctx, "Step stopped the chain", "step_id", step.ID, "step_type", step.StepType)

			return true, nil
		}

		step, err = e.nextStep(ctx, workflow, step)
		if err != nil {
			return false, err
		}
	}

	return false, nil
}

func (e *Engine) runStep(ctx context.Context, logger *slog.Logger, ticket *models.Ticket, step *models.WorkflowStep) (bool, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.step",
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepTypeKey, string(step.StepType)),
	)
	defer span.End()

	proceed, err := e.dispatchStep(ctx, logger, ticket, step, span)

	switch {
	case err != nil:
		otelhelper.SetError(span, err)
		metrics.IncStep(step.StepType, metrics.StepResultError)
	case proceed:
		metrics.IncStep(step.StepType, metrics.StepResultContinue)
	default:
		metrics.IncStep(step.StepType, metrics.StepResultStop)
	}

	return proceed, err
}

func (e *Engine) dispatchStep(
	ctx context.Context,
	logger *slog.Logger,
	ticket *models.Ticket,
	step *models.WorkflowStep,
	span trace.Span,
) (bool, error) {
	config, err := step.DecodeConfig()
	if err != nil {
		return false, err
	}

	switch step.StepType {
	case models.StepTypeAction:
		actionType := models.ActionType(config.String("action_type"))
		span.SetAttributes(attribute.String(otelhelper.HandlerTypeKey, string(actionType)))

		handler, ok := e.actions[actionType]
		if !ok {
			logger.DebugContext(ctx, "Unknown action type, skipping", "step_id", step.ID, "action_type", actionType)

			return true, nil
		}

		return handler(ctx, ticket, config)
	case models.StepTypeCondition:
		conditionType := models.ConditionType(config.String("condition_type"))
		span.SetAttributes(attribute.String(otelhelper.HandlerTypeKey, string(conditionType)))

		handler, ok := e.conditions[conditionType]
		if !ok {
			logger.DebugContext(ctx, "Unknown condition type, passing", "step_id", step.ID, "condition_type", conditionType)

			return true, nil
		}

		return handler(ctx, ticket, config)
	default:
		return true, nil
	}
}

// nextStep resolves next_step_id. A reference to a step that does not exist ends the chain;
// a reference to a step of another workflow fails the execution.
func (e *Engine) nextStep(ctx context.Context, workflow *models.Workflow, step *models.WorkflowStep) (*models.WorkflowStep, error) {
	if step.NextStepID == nil || *step.NextStepID == "" {
		return nil, nil
	}

	nextID := *step.NextStepID

	if next := workflow.StepByID(nextID); next != nil {
		return next, nil
	}

	next, err := e.persistence.StepRepository().GetByID(ctx, nextID)
	if err != nil {
		if persistence.IsStepNotFound(err) {
			e.logger.WarnContext(ctx, "Next step does not exist, ending chain", "step_id", step.ID, "next_step_id", nextID)

			return nil, nil
		}

		return nil, fmt.Errorf("failed to load next step %s: %w", nextID, err)
	}

	if next.WorkflowID != workflow.ID {
		return nil, fmt.Errorf("%w: step %s belongs to workflow %s", ErrForeignStep, nextID, next.WorkflowID)
	}

	return next, nil
}

func (e *Engine) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, key, event)
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish execution event", "error", err, "event_type", event.GetType())
	}
}

func copyContext(triggerContext map[string]any) map[string]any {
	if triggerContext == nil {
		return map[string]any{}
	}

	return maps.Clone(triggerContext)
}

func failedStepID(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.StepID
	}

	return ""
}
