package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
	steps  *StepRepository
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger, steps *StepRepository) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger, steps: steps}
}

const selectWorkflow = `
	SELECT
		id
	  , name
	  , description
	  , category
	  , is_active
	  , created_by
	  , created_at
	  , updated_at
	FROM workflows
`

// GetByID returns a workflow with its steps ordered by step_order.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, selectWorkflow+" WHERE id = $1", id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	workflow.Steps, err = r.steps.ListByWorkflow(ctx, workflow.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow steps: %w", err)
	}

	return workflow, nil
}

// ListActive returns active workflows with their steps, oldest first.
func (r *WorkflowRepository) ListActive(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, selectWorkflow+" WHERE is_active = true ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		workflow.Steps, err = r.steps.ListByWorkflow(ctx, workflow.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow steps: %w", err)
		}
	}

	return workflows, nil
}

// Save upserts a workflow and the steps it carries in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, category, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.Category,
		workflow.Active,
		workflow.CreatedBy,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	for _, step := range workflow.Steps {
		step.WorkflowID = workflow.ID

		err = saveStep(ctx, tx, step)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit workflow: %w", err)
	}

	return nil
}

// SetActive toggles the active flag of a workflow.
func (r *WorkflowRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE workflows SET is_active = $2, updated_at = $3 WHERE id = $1",
		id, active, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("SetActive", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var workflow models.Workflow

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Category,
		&workflow.Active,
		&workflow.CreatedBy,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

// StepRepository handles workflow step database operations.
type StepRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStepRepository creates a new step repository.
func NewStepRepository(db *sql.DB, logger *slog.Logger) *StepRepository {
	return &StepRepository{db: db, logger: logger}
}

const selectStep = `
	SELECT
		id
	  , workflow_id
	  , step_order
	  , name
	  , description
	  , step_type
	  , config
	  , next_step_id
	  , created_at
	FROM workflow_steps
`

// GetByID returns a step regardless of the workflow it belongs to.
func (r *StepRepository) GetByID(ctx context.Context, id string) (*models.WorkflowStep, error) {
	step, err := scanStep(r.db.QueryRowContext(ctx, selectStep+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "step", id, persistence.ErrStepNotFound)
		}

		return nil, fmt.Errorf("failed to scan step: %w", err)
	}

	return step, nil
}

// ListByWorkflow returns the steps of a workflow ordered by step_order.
func (r *StepRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	rows, err := r.db.QueryContext(ctx,
		selectStep+" WHERE workflow_id = $1 ORDER BY step_order ASC, created_at ASC", workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	steps := make([]*models.WorkflowStep, 0)

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		steps = append(steps, step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

// Save upserts a single step.
func (r *StepRepository) Save(ctx context.Context, step *models.WorkflowStep) error {
	return saveStep(ctx, r.db, step)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveStep(ctx context.Context, db execer, step *models.WorkflowStep) error {
	if step.ID == "" {
		step.ID = uuid.NewString()
	}

	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now().UTC()
	}

	config := string(step.Config)
	if config == "" {
		config = "{}"
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO workflow_steps (id, workflow_id, step_order, name, description, step_type, config, next_step_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			step_order = EXCLUDED.step_order,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			step_type = EXCLUDED.step_type,
			config = EXCLUDED.config,
			next_step_id = EXCLUDED.next_step_id
	`,
		step.ID,
		step.WorkflowID,
		step.StepOrder,
		step.Name,
		step.Description,
		string(step.StepType),
		config,
		step.NextStepID,
		step.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save step %s: %w", step.ID, err)
	}

	return nil
}

func scanStep(row scanner) (*models.WorkflowStep, error) {
	var (
		step     models.WorkflowStep
		stepType string
		config   string
		nextStep sql.NullString
	)

	err := row.Scan(
		&step.ID,
		&step.WorkflowID,
		&step.StepOrder,
		&step.Name,
		&step.Description,
		&stepType,
		&config,
		&nextStep,
		&step.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	step.StepType = models.StepType(stepType)
	step.Config = []byte(config)

	if nextStep.Valid {
		step.NextStepID = &nextStep.String
	}

	return &step, nil
}
