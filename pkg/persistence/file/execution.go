package file

import (
	"context"
	"sort"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
)

const executionsCollection = "executions"

// ExecutionRepository handles workflow execution file operations.
type ExecutionRepository struct {
	store *store
}

// Save writes the execution record, replacing the previous version.
func (er *ExecutionRepository) Save(_ context.Context, execution *models.WorkflowExecution) error {
	err := er.store.write(executionsCollection, execution.ID, execution)
	if err != nil {
		return persistence.NewEntityError("Save", "execution", execution.ID, err)
	}

	return nil
}

// GetByID retrieves an execution by its ID.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	err := er.store.read(executionsCollection, id, &execution, persistence.ErrExecutionNotFound)
	if err != nil {
		return nil, persistence.NewEntityError("GetByID", "execution", id, err)
	}

	return &execution, nil
}

// ListRecent returns up to limit executions ordered by started_at descending.
func (er *ExecutionRepository) ListRecent(_ context.Context, limit int) ([]*models.WorkflowExecution, error) {
	executions, err := er.filter(func(*models.WorkflowExecution) bool { return true })
	if err != nil {
		return nil, persistence.NewEntityError("ListRecent", "execution", "", err)
	}

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}

// ListByTicket returns the executions run against a ticket, newest first.
func (er *ExecutionRepository) ListByTicket(_ context.Context, ticketID string) ([]*models.WorkflowExecution, error) {
	executions, err := er.filter(func(e *models.WorkflowExecution) bool { return e.TicketID == ticketID })
	if err != nil {
		return nil, persistence.NewEntityError("ListByTicket", "execution", ticketID, err)
	}

	return executions, nil
}

// CountByWorkflow returns the number of executions recorded for a workflow.
func (er *ExecutionRepository) CountByWorkflow(_ context.Context, workflowID string) (int, error) {
	executions, err := er.filter(func(e *models.WorkflowExecution) bool { return e.WorkflowID == workflowID })
	if err != nil {
		return 0, persistence.NewEntityError("CountByWorkflow", "execution", workflowID, err)
	}

	return len(executions), nil
}

func (er *ExecutionRepository) filter(keep func(*models.WorkflowExecution) bool) ([]*models.WorkflowExecution, error) {
	executions := make([]*models.WorkflowExecution, 0)

	err := each(er.store, executionsCollection, func(e *models.WorkflowExecution) error {
		if keep(e) {
			executions = append(executions, e)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}
