// Package persistence provides data storage abstraction layer for workflows, executions and tickets.
package persistence

import (
	"context"

	"github.com/dukex/careflow/pkg/models"
)

// Persistence groups the repositories backing the workflow engine.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	StepRepository() StepRepository
	ExecutionRepository() ExecutionRepository
	TicketRepository() TicketRepository
	NotificationRepository() NotificationRepository
	TechnicianRepository() TechnicianRepository
	TemplateRepository() TemplateRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflows. Loaded workflows carry their steps.
type WorkflowRepository interface {
	// GetByID returns the workflow with its steps ordered by step_order.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// ListActive returns active workflows with their steps.
	ListActive(ctx context.Context) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	SetActive(ctx context.Context, id string, active bool) error
}

// StepRepository stores workflow steps.
type StepRepository interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowStep, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error)
	Save(ctx context.Context, step *models.WorkflowStep) error
}

// ExecutionRepository is the execution recorder. Records are append-only.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	// ListRecent returns up to limit executions, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.WorkflowExecution, error)
	ListByTicket(ctx context.Context, ticketID string) ([]*models.WorkflowExecution, error)
	CountByWorkflow(ctx context.Context, workflowID string) (int, error)
}

// TicketRepository is the ticket store consumed by the engine.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	Save(ctx context.Context, ticket *models.Ticket) error
	// ListByStatus returns tickets in any of the given statuses.
	ListByStatus(ctx context.Context, statuses ...string) ([]*models.Ticket, error)
}

// NotificationRepository is the notification sink.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]*models.Notification, error)
}

// TechnicianRepository lists technicians for auto-assignment.
type TechnicianRepository interface {
	// ListAvailable returns technicians whose availability is "available", in a stable order.
	ListAvailable(ctx context.Context) ([]*models.Technician, error)
	Save(ctx context.Context, technician *models.Technician) error
}

// TemplateRepository stores ticket templates.
type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*models.TicketTemplate, error)
	ListActive(ctx context.Context) ([]*models.TicketTemplate, error)
	Save(ctx context.Context, template *models.TicketTemplate) error
}
