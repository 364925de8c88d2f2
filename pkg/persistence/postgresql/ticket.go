package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TicketRepository handles ticket database operations.
type TicketRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(db *sql.DB, logger *slog.Logger) *TicketRepository {
	return &TicketRepository{db: db, logger: logger}
}

const selectTicket = `
	SELECT
		id
	  , title
	  , description
	  , status
	  , priority
	  , category
	  , patient_id
	  , department_id
	  , assigned_to
	  , template_id
	  , created_at
	  , updated_at
	  , resolved_at
	FROM tickets
`

// GetByID returns a ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRowContext(ctx, selectTicket+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "ticket", id, persistence.ErrTicketNotFound)
		}

		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}

	return ticket, nil
}

// Save upserts a ticket and stamps updated_at.
func (r *TicketRepository) Save(ctx context.Context, ticket *models.Ticket) error {
	now := time.Now().UTC()

	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}

	if ticket.CreatedAt == nil {
		ticket.CreatedAt = &now
	}

	ticket.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tickets (id, title, description, status, priority, category, patient_id, department_id,
			assigned_to, template_id, created_at, updated_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			category = EXCLUDED.category,
			patient_id = EXCLUDED.patient_id,
			department_id = EXCLUDED.department_id,
			assigned_to = EXCLUDED.assigned_to,
			template_id = EXCLUDED.template_id,
			updated_at = EXCLUDED.updated_at,
			resolved_at = EXCLUDED.resolved_at
	`,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		string(ticket.Priority),
		ticket.Category,
		ticket.PatientID,
		ticket.DepartmentID,
		ticket.AssignedTo,
		ticket.TemplateID,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save ticket: %w", err)
	}

	return nil
}

// ListByStatus returns tickets in any of the given statuses, oldest first.
func (r *TicketRepository) ListByStatus(ctx context.Context, statuses ...string) ([]*models.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTicket+" WHERE status = ANY($1) ORDER BY created_at ASC NULLS FIRST", pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	tickets := make([]*models.Ticket, 0)

	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}

		tickets = append(tickets, ticket)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

func scanTicket(row scanner) (*models.Ticket, error) {
	var (
		ticket     models.Ticket
		priority   string
		assignedTo sql.NullString
		templateID sql.NullString
		createdAt  sql.NullTime
		resolvedAt sql.NullTime
	)

	err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&priority,
		&ticket.Category,
		&ticket.PatientID,
		&ticket.DepartmentID,
		&assignedTo,
		&templateID,
		&createdAt,
		&ticket.UpdatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	ticket.Priority = models.Priority(priority)

	if assignedTo.Valid {
		ticket.AssignedTo = &assignedTo.String
	}

	if templateID.Valid {
		ticket.TemplateID = &templateID.String
	}

	if createdAt.Valid {
		ticket.CreatedAt = &createdAt.Time
	}

	if resolvedAt.Valid {
		ticket.ResolvedAt = &resolvedAt.Time
	}

	return &ticket, nil
}

// NotificationRepository handles notification database operations.
type NotificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sql.DB, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, related_ticket_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		notification.ID,
		notification.UserID,
		notification.Title,
		notification.Message,
		notification.Type,
		notification.RelatedTicketID,
		notification.IsRead,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListByUser returns the notifications addressed to a user, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, related_ticket_id, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		var (
			notification models.Notification
			user         sql.NullString
		)

		err := rows.Scan(
			&notification.ID,
			&user,
			&notification.Title,
			&notification.Message,
			&notification.Type,
			&notification.RelatedTicketID,
			&notification.IsRead,
			&notification.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if user.Valid {
			notification.UserID = &user.String
		}

		notifications = append(notifications, &notification)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// TechnicianRepository handles technician database operations.
type TechnicianRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTechnicianRepository creates a new technician repository.
func NewTechnicianRepository(db *sql.DB, logger *slog.Logger) *TechnicianRepository {
	return &TechnicianRepository{db: db, logger: logger}
}

// ListAvailable returns available technicians ordered by name then ID.
func (r *TechnicianRepository) ListAvailable(ctx context.Context) ([]*models.Technician, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, user_id, skills, availability
		FROM technicians
		WHERE availability = $1
		ORDER BY name ASC, id ASC
	`, models.AvailabilityAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to query technicians: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	technicians := make([]*models.Technician, 0)

	for rows.Next() {
		var technician models.Technician

		err := rows.Scan(
			&technician.ID,
			&technician.Name,
			&technician.UserID,
			pq.Array(&technician.Skills),
			&technician.Availability,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan technician: %w", err)
		}

		technicians = append(technicians, &technician)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating technicians: %w", err)
	}

	return technicians, nil
}

// Save upserts a technician.
func (r *TechnicianRepository) Save(ctx context.Context, technician *models.Technician) error {
	if technician.ID == "" {
		technician.ID = uuid.NewString()
	}

	skills := technician.Skills
	if skills == nil {
		skills = []string{}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO technicians (id, name, user_id, skills, availability)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			user_id = EXCLUDED.user_id,
			skills = EXCLUDED.skills,
			availability = EXCLUDED.availability
	`,
		technician.ID,
		technician.Name,
		technician.UserID,
		pq.Array(skills),
		technician.Availability,
	)
	if err != nil {
		return fmt.Errorf("failed to save technician: %w", err)
	}

	return nil
}

// TemplateRepository handles ticket template database operations.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

const selectTemplate = `
	SELECT
		id
	  , name
	  , description
	  , category
	  , priority
	  , department_id
	  , custom_fields
	  , workflow_id
	  , is_active
	  , created_by
	  , created_at
	  , updated_at
	FROM ticket_templates
`

// GetByID returns a template by its ID.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.TicketTemplate, error) {
	template, err := scanTemplate(r.db.QueryRowContext(ctx, selectTemplate+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "template", id, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	return template, nil
}

// ListActive returns active templates ordered by name.
func (r *TemplateRepository) ListActive(ctx context.Context) ([]*models.TicketTemplate, error) {
	rows, err := r.db.QueryContext(ctx, selectTemplate+" WHERE is_active = true ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	templates := make([]*models.TicketTemplate, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

// Save upserts a template.
func (r *TemplateRepository) Save(ctx context.Context, template *models.TicketTemplate) error {
	now := time.Now().UTC()

	if template.ID == "" {
		template.ID = uuid.NewString()
	}

	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	customFields, err := json.Marshal(template.CustomFields)
	if err != nil {
		return fmt.Errorf("failed to marshal custom fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ticket_templates (id, name, description, category, priority, department_id, custom_fields,
			workflow_id, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			department_id = EXCLUDED.department_id,
			custom_fields = EXCLUDED.custom_fields,
			workflow_id = EXCLUDED.workflow_id,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`,
		template.ID,
		template.Name,
		template.Description,
		template.Category,
		string(template.Priority),
		template.DepartmentID,
		customFields,
		template.WorkflowID,
		template.Active,
		template.CreatedBy,
		template.CreatedAt,
		template.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	return nil
}

func scanTemplate(row scanner) (*models.TicketTemplate, error) {
	var (
		template     models.TicketTemplate
		priority     string
		customFields []byte
		workflowID   sql.NullString
	)

	err := row.Scan(
		&template.ID,
		&template.Name,
		&template.Description,
		&template.Category,
		&priority,
		&template.DepartmentID,
		&customFields,
		&workflowID,
		&template.Active,
		&template.CreatedBy,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	template.Priority = models.Priority(priority)

	if workflowID.Valid {
		template.WorkflowID = &workflowID.String
	}

	if len(customFields) > 0 {
		err = json.Unmarshal(customFields, &template.CustomFields)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal custom fields: %w", err)
		}
	}

	return &template, nil
}
