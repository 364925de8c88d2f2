package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
	"github.com/dukex/careflow/pkg/workflow"
	"github.com/google/uuid"
)

// Template handles ticket templates and ticket creation from them.
type Template struct {
	persistence  persistence.Persistence
	executor     workflow.Executor
	ticketEvents *TicketEvents
	logger       *slog.Logger
}

// NewTemplate creates a new template service.
func NewTemplate(
	persistence persistence.Persistence,
	executor workflow.Executor,
	ticketEvents *TicketEvents,
	logger *slog.Logger,
) *Template {
	return &Template{
		persistence:  persistence,
		executor:     executor,
		ticketEvents: ticketEvents,
		logger:       logger.With("module", "template_service"),
	}
}

// CreateTemplateRequest contains the fields of a new ticket template.
type CreateTemplateRequest struct {
	Name         string         `json:"name"          validate:"required"`
	Description  string         `json:"description"`
	Category     string         `json:"category"      validate:"required"`
	Priority     string         `json:"priority"      validate:"omitempty,oneof=low medium high critical"`
	DepartmentID string         `json:"department_id"`
	CustomFields map[string]any `json:"custom_fields"`
	WorkflowID   *string        `json:"workflow_id"`
	CreatedBy    string         `json:"created_by"`
}

// Create stores an active template. Priority defaults to medium; workflow_id, when set,
// must name an existing workflow.
func (t *Template) Create(ctx context.Context, req CreateTemplateRequest) (*models.TicketTemplate, error) {
	err := validateRequest("Create", req)
	if err != nil {
		return nil, err
	}

	workflowID := nonEmpty(req.WorkflowID)
	if workflowID != nil {
		_, err := t.persistence.WorkflowRepository().GetByID(ctx, *workflowID)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				return nil, NewValidationError("Create", "TEMPLATE_WORKFLOW",
					fmt.Sprintf("workflow %s does not exist", *workflowID), ErrTemplateWorkflow)
			}

			return nil, fmt.Errorf("failed to load template workflow: %w", err)
		}
	}

	priority := models.Priority(req.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	now := time.Now().UTC()
	template := &models.TicketTemplate{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     priority,
		DepartmentID: req.DepartmentID,
		CustomFields: req.CustomFields,
		WorkflowID:   workflowID,
		Active:       true,
		CreatedBy:    req.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = t.persistence.TemplateRepository().Save(ctx, template)
	if err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	return template, nil
}

// ListActive returns the active templates ordered by name.
func (t *Template) ListActive(ctx context.Context) ([]*models.TicketTemplate, error) {
	templates, err := t.persistence.TemplateRepository().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, nil
}

// UseTemplateRequest contains the ticket specific fields; the rest comes from the template.
type UseTemplateRequest struct {
	Title        string `json:"title"         validate:"required"`
	Description  string `json:"description"`
	PatientID    string `json:"patient_id"`
	Priority     string `json:"priority"      validate:"omitempty,oneof=low medium high critical"`
	DepartmentID string `json:"department_id"`
}

// UseTemplateResult is the ticket created from a template and, when the template names a
// workflow, the execution it started. ExecutionError is set when that run failed.
type UseTemplateResult struct {
	Ticket         *models.Ticket            `json:"ticket"`
	Execution      *models.WorkflowExecution `json:"execution,omitempty"`
	ExecutionError string                    `json:"execution_error,omitempty"`
}

// Use creates an open ticket from the template, runs the template workflow on it with
// {template_id, trigger_type: template_used} and emits ticket_created. The ticket is kept
// even when the workflow run fails.
func (t *Template) Use(ctx context.Context, templateID string, req UseTemplateRequest) (*UseTemplateResult, error) {
	err := validateRequest("Use", req)
	if err != nil {
		return nil, err
	}

	template, err := t.persistence.TemplateRepository().GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if !template.Active {
		return nil, &ServiceError{Op: "Use", Code: "TEMPLATE_INACTIVE", Err: ErrTemplateInactive}
	}

	ticket := newTicketFromTemplate(template, req)

	err = t.persistence.TicketRepository().Save(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	logger := t.logger.With("template_id", template.ID, "ticket_id", ticket.ID)
	logger.InfoContext(ctx, "Created ticket from template")

	result := &UseTemplateResult{Ticket: ticket}

	if template.WorkflowID != nil {
		execution, err := t.executor.Execute(ctx, *template.WorkflowID, ticket.ID, map[string]any{
			"template_id":  template.ID,
			"trigger_type": models.EventTemplateUsed,
		})
		if err != nil {
			logger.WarnContext(ctx, "Template workflow did not complete", "workflow_id", *template.WorkflowID, "error", err)
			result.ExecutionError = err.Error()
		}

		result.Execution = execution
	}

	_, err = t.ticketEvents.Emit(ctx, models.EventTicketCreated, ticket.ID, map[string]any{
		"template_id":  template.ID,
		"trigger_type": models.EventTicketCreated,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to emit ticket_created", "error", err)
	}

	reloaded, err := t.persistence.TicketRepository().GetByID(ctx, ticket.ID)
	if err == nil {
		result.Ticket = reloaded
	}

	return result, nil
}

func newTicketFromTemplate(template *models.TicketTemplate, req UseTemplateRequest) *models.Ticket {
	now := time.Now().UTC()
	templateID := template.ID

	priority := template.Priority
	if req.Priority != "" {
		priority = models.Priority(req.Priority)
	}

	if priority == "" {
		priority = models.PriorityMedium
	}

	departmentID := template.DepartmentID
	if req.DepartmentID != "" {
		departmentID = req.DepartmentID
	}

	description := req.Description
	if description == "" {
		description = template.Description
	}

	return &models.Ticket{
		ID:           uuid.New().String(),
		Title:        req.Title,
		Description:  description,
		Status:       models.TicketStatusOpen,
		Priority:     priority,
		Category:     template.Category,
		PatientID:    req.PatientID,
		DepartmentID: departmentID,
		TemplateID:   &templateID,
		CreatedAt:    &now,
		UpdatedAt:    now,
	}
}
