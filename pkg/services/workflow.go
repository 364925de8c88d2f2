package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
	"github.com/dukex/careflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest runs struct tag validation and reports failures as ErrInvalidRequest.
func validateRequest(op string, req any) error {
	err := validate.Struct(req)
	if err != nil {
		return NewValidationError(op, "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	return nil
}

type Workflow struct {
	persistence persistence.Persistence
	executor    workflow.Executor
}

// NewWorkflow creates a new workflow service. The executor runs manual triggers.
func NewWorkflow(persistence persistence.Persistence, executor workflow.Executor) *Workflow {
	return &Workflow{
		persistence: persistence,
		executor:    executor,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest contains the fields of a new workflow.
type CreateWorkflowRequest struct {
	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CreatedBy   string `json:"created_by"`
}

// Create adds a new active workflow without steps. Category defaults to "ticket".
func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	err := validateRequest("Create", req)
	if err != nil {
		return nil, err
	}

	if req.Category == "" {
		req.Category = models.WorkflowCategoryTicket
	}

	now := time.Now().UTC()
	wf := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Active:      true,
		CreatedBy:   req.CreatedBy,
		Steps:       []*models.WorkflowStep{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = w.persistence.WorkflowRepository().Save(ctx, wf)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return wf, nil
}

// FetchByID retrieves a workflow with its steps ordered by step_order.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	wf, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if wf.Steps == nil {
		wf.Steps = []*models.WorkflowStep{}
	}

	return wf, nil
}

// WorkflowSummary is a workflow listed with its step and execution counts.
type WorkflowSummary struct {
	*models.Workflow

	StepCount      int `json:"step_count"`
	ExecutionCount int `json:"execution_count"`
}

// ListActive returns the active workflows with their counts.
func (w *Workflow) ListActive(ctx context.Context) ([]*WorkflowSummary, error) {
	workflows, err := w.persistence.WorkflowRepository().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	summaries := make([]*WorkflowSummary, 0, len(workflows))

	for _, wf := range workflows {
		count, err := w.persistence.ExecutionRepository().CountByWorkflow(ctx, wf.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count executions of workflow %s: %w", wf.ID, err)
		}

		summaries = append(summaries, &WorkflowSummary{
			Workflow:       wf,
			StepCount:      len(wf.Steps),
			ExecutionCount: count,
		})
	}

	return summaries, nil
}

// Deactivate soft-disables a workflow: it keeps its steps and history but no longer runs.
func (w *Workflow) Deactivate(ctx context.Context, id string) error {
	return w.persistence.WorkflowRepository().SetActive(ctx, id, false)
}

// AddStepRequest contains the fields of a new workflow step.
type AddStepRequest struct {
	Name        string         `json:"name"         validate:"required"`
	Description string         `json:"description"`
	StepType    string         `json:"step_type"    validate:"required"`
	Config      map[string]any `json:"config"`
	NextStepID  *string        `json:"next_step_id"`
}

// AddStep appends a step to the workflow with step_order = max + 1. The config must satisfy
// the schema of its type and next_step_id, when set, must name a step of the same workflow.
func (w *Workflow) AddStep(ctx context.Context, workflowID string, req AddStepRequest) (*models.WorkflowStep, error) {
	err := validateRequest("AddStep", req)
	if err != nil {
		return nil, err
	}

	stepType := models.StepType(req.StepType)
	if !stepType.IsValid() {
		return nil, NewValidationError("AddStep", "INVALID_STEP_TYPE",
			fmt.Sprintf("invalid step type '%s', allowed: trigger, condition, action", req.StepType), ErrInvalidStepType)
	}

	err = ValidateStepConfig(stepType, req.Config)
	if err != nil {
		return nil, NewValidationError("AddStep", "INVALID_STEP_CONFIG", err.Error(), err)
	}

	wf, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	nextStepID := nonEmpty(req.NextStepID)
	if nextStepID != nil && wf.StepByID(*nextStepID) == nil {
		return nil, NewValidationError("AddStep", "INVALID_NEXT_STEP",
			fmt.Sprintf("step %s is not part of workflow %s", *nextStepID, workflowID), ErrInvalidNextStep)
	}

	config := req.Config
	if config == nil {
		config = map[string]any{}
	}

	rawConfig, err := json.Marshal(config)
	if err != nil {
		return nil, NewValidationError("AddStep", "INVALID_STEP_CONFIG", err.Error(), ErrInvalidStepConfig)
	}

	step := &models.WorkflowStep{
		ID:          uuid.New().String(),
		WorkflowID:  wf.ID,
		StepOrder:   wf.MaxStepOrder() + 1,
		Name:        req.Name,
		Description: req.Description,
		StepType:    stepType,
		Config:      rawConfig,
		NextStepID:  nextStepID,
		CreatedAt:   time.Now().UTC(),
	}

	err = w.persistence.StepRepository().Save(ctx, step)
	if err != nil {
		return nil, fmt.Errorf("failed to save step: %w", err)
	}

	return step, nil
}

// LinkStep points stepID at nextStepID, or unlinks it when nextStepID is nil. Links that
// leave the workflow or close a cycle are rejected.
func (w *Workflow) LinkStep(ctx context.Context, workflowID, stepID string, nextStepID *string) (*models.WorkflowStep, error) {
	wf, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	step := wf.StepByID(stepID)
	if step == nil {
		return nil, NewValidationError("LinkStep", "STEP_NOT_IN_WORKFLOW",
			fmt.Sprintf("step %s is not part of workflow %s", stepID, workflowID), ErrStepNotInWorkflow)
	}

	nextStepID = nonEmpty(nextStepID)
	if nextStepID != nil {
		if wf.StepByID(*nextStepID) == nil {
			return nil, NewValidationError("LinkStep", "INVALID_NEXT_STEP",
				fmt.Sprintf("step %s is not part of workflow %s", *nextStepID, workflowID), ErrInvalidNextStep)
		}

		if reaches(wf, *nextStepID, stepID) {
			return nil, NewValidationError("LinkStep", "STEP_CYCLE",
				fmt.Sprintf("linking %s to %s creates a cycle", stepID, *nextStepID), ErrStepCycle)
		}
	}

	step.NextStepID = nextStepID

	err = w.persistence.StepRepository().Save(ctx, step)
	if err != nil {
		return nil, fmt.Errorf("failed to save step: %w", err)
	}

	return step, nil
}

// reaches reports whether following next_step_id from start arrives at target.
func reaches(wf *models.Workflow, start, target string) bool {
	visited := map[string]bool{}

	for current := start; current != ""; {
		if current == target {
			return true
		}

		if visited[current] {
			return false
		}

		visited[current] = true

		step := wf.StepByID(current)
		if step == nil || step.NextStepID == nil {
			return false
		}

		current = *step.NextStepID
	}

	return false
}

func nonEmpty(nextStepID *string) *string {
	if nextStepID == nil || *nextStepID == "" {
		return nil
	}

	return nextStepID
}

// TriggerRequest asks for a manual run of a workflow against a ticket.
type TriggerRequest struct {
	TicketID    string         `json:"ticket_id"    validate:"required"`
	TriggeredBy string         `json:"triggered_by"`
	TriggerData map[string]any `json:"trigger_data"`
}

// Trigger runs the workflow once against the ticket with the context
// {trigger_type: manual, triggered_by, ...trigger_data}. A failed run is returned
// together with its error; a run a step stopped early is returned with ErrExecutionStopped.
func (w *Workflow) Trigger(ctx context.Context, workflowID string, req TriggerRequest) (*models.WorkflowExecution, error) {
	err := validateRequest("Trigger", req)
	if err != nil {
		return nil, err
	}

	triggerContext := map[string]any{
		"trigger_type": models.EventManual,
		"triggered_by": req.TriggeredBy,
	}
	maps.Copy(triggerContext, req.TriggerData)

	execution, err := w.executor.Execute(ctx, workflowID, req.TicketID, triggerContext)
	if err != nil && errors.Is(err, workflow.ErrWorkflowInactive) {
		return nil, &ServiceError{Op: "Trigger", Code: "WORKFLOW_INACTIVE", Err: ErrWorkflowInactive}
	}

	if err == nil && execution != nil && execution.Stopped {
		return execution, fmt.Errorf("%w: execution %s", ErrExecutionStopped, execution.ID)
	}

	return execution, err
}
