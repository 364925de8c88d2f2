package file

import (
	"context"
	"sort"
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
)

const (
	workflowsCollection = "workflows"
	stepsCollection     = "steps"
)

// WorkflowRepository handles workflow-related file operations.
// Steps are stored in their own collection and attached on load.
type WorkflowRepository struct {
	store *store
	steps *StepRepository
}

// NewWorkflowRepository creates a new workflow repository rooted at root.
func NewWorkflowRepository(root string) *WorkflowRepository {
	s := &store{root: root}

	return &WorkflowRepository{store: s, steps: &StepRepository{store: s}}
}

// GetByID retrieves a workflow with its steps ordered by step_order.
func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := wr.store.read(workflowsCollection, id, &workflow, persistence.ErrWorkflowNotFound)
	if err != nil {
		return nil, persistence.NewEntityError("GetByID", "workflow", id, err)
	}

	steps, err := wr.steps.ListByWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.Steps = steps

	return &workflow, nil
}

// ListActive returns all active workflows with their steps, oldest first.
func (wr *WorkflowRepository) ListActive(ctx context.Context) ([]*models.Workflow, error) {
	workflows := make([]*models.Workflow, 0)

	err := each(wr.store, workflowsCollection, func(w *models.Workflow) error {
		if w.Active {
			workflows = append(workflows, w)
		}

		return nil
	})
	if err != nil {
		return nil, persistence.NewEntityError("ListActive", "workflow", "", err)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	for _, workflow := range workflows {
		steps, err := wr.steps.ListByWorkflow(ctx, workflow.ID)
		if err != nil {
			return nil, err
		}

		workflow.Steps = steps
	}

	return workflows, nil
}

// Save writes the workflow document. Steps are persisted through the step repository.
func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	doc := *workflow
	doc.Steps = nil

	err := wr.store.write(workflowsCollection, workflow.ID, &doc)
	if err != nil {
		return persistence.NewEntityError("Save", "workflow", workflow.ID, err)
	}

	for _, step := range workflow.Steps {
		step.WorkflowID = workflow.ID

		err = wr.steps.Save(ctx, step)
		if err != nil {
			return err
		}
	}

	return nil
}

// SetActive toggles the active flag of a workflow.
func (wr *WorkflowRepository) SetActive(_ context.Context, id string, active bool) error {
	var workflow models.Workflow

	err := wr.store.read(workflowsCollection, id, &workflow, persistence.ErrWorkflowNotFound)
	if err != nil {
		return persistence.NewEntityError("SetActive", "workflow", id, err)
	}

	workflow.Active = active
	workflow.UpdatedAt = time.Now().UTC()

	err = wr.store.write(workflowsCollection, id, &workflow)
	if err != nil {
		return persistence.NewEntityError("SetActive", "workflow", id, err)
	}

	return nil
}

// StepRepository handles workflow step file operations.
type StepRepository struct {
	store *store
}

// GetByID retrieves a step by its ID regardless of the workflow it belongs to.
func (sr *StepRepository) GetByID(_ context.Context, id string) (*models.WorkflowStep, error) {
	var step models.WorkflowStep

	err := sr.store.read(stepsCollection, id, &step, persistence.ErrStepNotFound)
	if err != nil {
		return nil, persistence.NewEntityError("GetByID", "step", id, err)
	}

	return &step, nil
}

// ListByWorkflow returns the steps of a workflow ordered by step_order.
func (sr *StepRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	steps := make([]*models.WorkflowStep, 0)

	err := each(sr.store, stepsCollection, func(s *models.WorkflowStep) error {
		if s.WorkflowID == workflowID {
			steps = append(steps, s)
		}

		return nil
	})
	if err != nil {
		return nil, persistence.NewEntityError("ListByWorkflow", "step", workflowID, err)
	}

	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].StepOrder == steps[j].StepOrder {
			return steps[i].CreatedAt.Before(steps[j].CreatedAt)
		}

		return steps[i].StepOrder < steps[j].StepOrder
	})

	return steps, nil
}

// Save writes the step document.
func (sr *StepRepository) Save(_ context.Context, step *models.WorkflowStep) error {
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now().UTC()
	}

	err := sr.store.write(stepsCollection, step.ID, step)
	if err != nil {
		return persistence.NewEntityError("Save", "step", step.ID, err)
	}

	return nil
}
