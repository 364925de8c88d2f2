package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
)

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const selectExecution = `
	SELECT
		id
	  , workflow_id
	  , ticket_id
	  , current_step_id
	  , status
	  , context
	  , executed_steps
	  , started_at
	  , completed_at
	  , error_message
	  , stopped
	FROM workflow_executions
`

// Save upserts the execution record.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal execution context: %w", err)
	}

	executed := execution.ExecutedSteps
	if executed == nil {
		executed = []string{}
	}

	executedJSON, err := json.Marshal(executed)
	if err != nil {
		return fmt.Errorf("failed to marshal executed steps: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (id, workflow_id, ticket_id, current_step_id, status, context,
			executed_steps, started_at, completed_at, error_message, stopped)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			current_step_id = EXCLUDED.current_step_id,
			status = EXCLUDED.status,
			context = EXCLUDED.context,
			executed_steps = EXCLUDED.executed_steps,
			completed_at = EXCLUDED.completed_at,
			error_message = EXCLUDED.error_message,
			stopped = EXCLUDED.stopped
	`,
		execution.ID,
		execution.WorkflowID,
		execution.TicketID,
		execution.CurrentStepID,
		string(execution.Status),
		contextJSON,
		executedJSON,
		execution.StartedAt,
		execution.CompletedAt,
		execution.ErrorMessage,
		execution.Stopped,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	return nil
}

// GetByID returns an execution by its ID.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	execution, err := scanExecution(r.db.QueryRowContext(ctx, selectExecution+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// ListRecent returns up to limit executions, newest first.
func (r *ExecutionRepository) ListRecent(ctx context.Context, limit int) ([]*models.WorkflowExecution, error) {
	return r.list(ctx, selectExecution+" ORDER BY started_at DESC LIMIT $1", limit)
}

// ListByTicket returns the executions run against a ticket, newest first.
func (r *ExecutionRepository) ListByTicket(ctx context.Context, ticketID string) ([]*models.WorkflowExecution, error) {
	return r.list(ctx, selectExecution+" WHERE ticket_id = $1 ORDER BY started_at DESC", ticketID)
}

// CountByWorkflow returns the number of executions recorded for a workflow.
func (r *ExecutionRepository) CountByWorkflow(ctx context.Context, workflowID string) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workflow_executions WHERE workflow_id = $1", workflowID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}

	return count, nil
}

func (r *ExecutionRepository) list(ctx context.Context, query string, args ...any) ([]*models.WorkflowExecution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row scanner) (*models.WorkflowExecution, error) {
	var (
		execution    models.WorkflowExecution
		status       string
		currentStep  sql.NullString
		completedAt  sql.NullTime
		contextJSON  []byte
		executedJSON []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.TicketID,
		&currentStep,
		&status,
		&contextJSON,
		&executedJSON,
		&execution.StartedAt,
		&completedAt,
		&execution.ErrorMessage,
		&execution.Stopped,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)

	if currentStep.Valid {
		execution.CurrentStepID = &currentStep.String
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	err = json.Unmarshal(contextJSON, &execution.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution context: %w", err)
	}

	err = json.Unmarshal(executedJSON, &execution.ExecutedSteps)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal executed steps: %w", err)
	}

	return &execution, nil
}
