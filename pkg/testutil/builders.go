// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestTicket creates an open medium-priority Ticket that can be overridden.
func CreateTestTicket(overrides ...func(*models.Ticket)) *models.Ticket {
	createdAt := time.Now().UTC().Add(-time.Hour)
	ticket := &models.Ticket{
		ID:           uuid.New().String(),
		Title:        "Infusion pump alarm",
		Description:  "Pump in room 12 keeps alarming",
		Status:       models.TicketStatusOpen,
		Priority:     models.PriorityMedium,
		Category:     "equipment",
		DepartmentID: "icu",
		CreatedAt:    &createdAt,
		UpdatedAt:    createdAt,
	}

	for _, override := range overrides {
		override(ticket)
	}

	return ticket
}

// WithCategory sets the ticket category.
func WithCategory(category string) func(*models.Ticket) {
	return func(t *models.Ticket) {
		t.Category = category
	}
}

// WithPriority sets the ticket priority.
func WithPriority(priority models.Priority) func(*models.Ticket) {
	return func(t *models.Ticket) {
		t.Priority = priority
	}
}

// WithStatus sets the ticket status.
func WithStatus(status string) func(*models.Ticket) {
	return func(t *models.Ticket) {
		t.Status = status
	}
}

// WithDepartment sets the ticket department.
func WithDepartment(departmentID string) func(*models.Ticket) {
	return func(t *models.Ticket) {
		t.DepartmentID = departmentID
	}
}

// WithCreatedAt sets the ticket creation time.
func WithCreatedAt(createdAt time.Time) func(*models.Ticket) {
	return func(t *models.Ticket) {
		t.CreatedAt = &createdAt
	}
}

// WithAssignee sets the ticket assignee.
func WithAssignee(userID string) func(*models.Ticket) {
	return func(t *models.Ticket) {
		t.AssignedTo = &userID
	}
}

// CreateTestWorkflow creates an active ticket workflow owning the given steps.
// Steps are attached in order; their WorkflowID is set to the workflow.
func CreateTestWorkflow(steps ...*models.WorkflowStep) *models.Workflow {
	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        "Test Workflow",
		Description: "A test workflow",
		Category:    models.WorkflowCategoryTicket,
		Active:      true,
		CreatedBy:   "test-user",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, step := range steps {
		step.WorkflowID = workflow.ID
		workflow.Steps = append(workflow.Steps, step)
	}

	return workflow
}

// CreateTestStep creates a step of the given type and config. Step order defaults to 1.
func CreateTestStep(stepType models.StepType, config map[string]any, overrides ...func(*models.WorkflowStep)) *models.WorkflowStep {
	step := &models.WorkflowStep{
		ID:        uuid.New().String(),
		StepOrder: 1,
		Name:      "Test " + string(stepType),
		StepType:  stepType,
		Config:    models.MustConfig(config),
		CreatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

// WithStepID sets the step ID.
func WithStepID(id string) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.ID = id
	}
}

// WithNext points the step at the given next step ID.
func WithNext(nextStepID string) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.NextStepID = &nextStepID
	}
}

// Chain orders steps 1..n and links each one to the following step.
func Chain(steps ...*models.WorkflowStep) []*models.WorkflowStep {
	for i, step := range steps {
		step.StepOrder = i + 1

		if i+1 < len(steps) {
			next := steps[i+1].ID
			step.NextStepID = &next
		}
	}

	return steps
}

// TriggerConfig builds a trigger step config for event with optional conditions.
func TriggerConfig(event string, conditions ...map[string]any) map[string]any {
	config := map[string]any{"trigger_type": event}
	if len(conditions) > 0 {
		items := make([]any, 0, len(conditions))
		for _, condition := range conditions {
			items = append(items, condition)
		}

		config["conditions"] = items
	}

	return config
}

// CreateTestTechnician creates an available technician with the given skills.
func CreateTestTechnician(name string, skills ...string) *models.Technician {
	return &models.Technician{
		ID:           uuid.New().String(),
		Name:         name,
		UserID:       "user-" + name,
		Skills:       skills,
		Availability: models.AvailabilityAvailable,
	}
}
