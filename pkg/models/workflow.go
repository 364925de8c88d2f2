// Package models defines the core domain models for ticket workflow automation
package models

import "time"

// Workflow represents a named chain of steps that reacts to ticket events.
type Workflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"                  validate:"required,min=3"`
	Description string          `json:"description"`
	Category    string          `json:"category"              validate:"required"` // Domain tag, e.g. "ticket"
	Active      bool            `json:"is_active"`
	CreatedBy   string          `json:"created_by"`
	Steps       []*WorkflowStep `json:"steps,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// WorkflowCategoryTicket is the category of workflows driven by ticket events.
const WorkflowCategoryTicket = "ticket"

// EntryStep returns the step with step_order 1, the entry point of the chain.
func (w *Workflow) EntryStep() *WorkflowStep {
	for _, step := range w.Steps {
		if step.StepOrder == 1 {
			return step
		}
	}

	return nil
}

// StepByID returns the step with the given ID when it belongs to this workflow.
func (w *Workflow) StepByID(id string) *WorkflowStep {
	for _, step := range w.Steps {
		if step.ID == id {
			return step
		}
	}

	return nil
}

// TriggerSteps returns the trigger steps of the workflow in step order.
func (w *Workflow) TriggerSteps() []*WorkflowStep {
	var triggers []*WorkflowStep

	for _, step := range w.Steps {
		if step.StepType == StepTypeTrigger {
			triggers = append(triggers, step)
		}
	}

	return triggers
}

// MaxStepOrder returns the highest step_order in the workflow, 0 when it has no steps.
func (w *Workflow) MaxStepOrder() int {
	highest := 0

	for _, step := range w.Steps {
		if step.StepOrder > highest {
			highest = step.StepOrder
		}
	}

	return highest
}
