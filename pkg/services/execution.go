package services

import (
	"context"
	"fmt"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
)

// RecentExecutionsLimit is the number of executions returned by ListRecent.
const RecentExecutionsLimit = 100

// Execution serves the execution history.
type Execution struct {
	persistence persistence.Persistence
}

func NewExecution(persistence persistence.Persistence) *Execution {
	return &Execution{persistence: persistence}
}

// ExecutionSummary is an execution with the names of its workflow and current step.
type ExecutionSummary struct {
	*models.WorkflowExecution

	WorkflowName    string `json:"workflow_name"`
	CurrentStepName string `json:"current_step_name,omitempty"`
}

// ListRecent returns the latest executions, newest first.
func (e *Execution) ListRecent(ctx context.Context) ([]*ExecutionSummary, error) {
	executions, err := e.persistence.ExecutionRepository().ListRecent(ctx, RecentExecutionsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return e.summarize(ctx, executions)
}

// ListByTicket returns the executions of one ticket, newest first.
func (e *Execution) ListByTicket(ctx context.Context, ticketID string) ([]*ExecutionSummary, error) {
	executions, err := e.persistence.ExecutionRepository().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions of ticket %s: %w", ticketID, err)
	}

	return e.summarize(ctx, executions)
}

// FetchByID returns one execution with its decoded context.
func (e *Execution) FetchByID(ctx context.Context, id string) (*ExecutionSummary, error) {
	execution, err := e.persistence.ExecutionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	summaries, err := e.summarize(ctx, []*models.WorkflowExecution{execution})
	if err != nil {
		return nil, err
	}

	return summaries[0], nil
}

// summarize resolves names. Workflows or steps that no longer resolve leave the name empty.
func (e *Execution) summarize(ctx context.Context, executions []*models.WorkflowExecution) ([]*ExecutionSummary, error) {
	workflowNames := map[string]string{}
	stepNames := map[string]string{}
	summaries := make([]*ExecutionSummary, 0, len(executions))

	for _, execution := range executions {
		name, ok := workflowNames[execution.WorkflowID]
		if !ok {
			wf, err := e.persistence.WorkflowRepository().GetByID(ctx, execution.WorkflowID)
			if err != nil && !persistence.IsWorkflowNotFound(err) {
				return nil, fmt.Errorf("failed to load workflow %s: %w", execution.WorkflowID, err)
			}

			if wf != nil {
				name = wf.Name

				for _, step := range wf.Steps {
					stepNames[step.ID] = step.Name
				}
			}

			workflowNames[execution.WorkflowID] = name
		}

		summary := &ExecutionSummary{WorkflowExecution: execution, WorkflowName: name}
		if execution.CurrentStepID != nil {
			summary.CurrentStepName = stepNames[*execution.CurrentStepID]
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
