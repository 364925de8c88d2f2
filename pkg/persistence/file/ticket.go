package file

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
)

const (
	ticketsCollection       = "tickets"
	notificationsCollection = "notifications"
	techniciansCollection   = "technicians"
	templatesCollection     = "templates"
)

// TicketRepository handles ticket file operations.
type TicketRepository struct {
	store *store
}

// GetByID retrieves a ticket by its ID.
func (tr *TicketRepository) GetByID(_ context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket

	err := tr.store.read(ticketsCollection, id, &ticket, persistence.ErrTicketNotFound)
	if err != nil {
		return nil, persistence.NewEntityError("GetByID", "ticket", id, err)
	}

	return &ticket, nil
}

// Save writes the ticket and stamps updated_at.
func (tr *TicketRepository) Save(_ context.Context, ticket *models.Ticket) error {
	now := time.Now().UTC()
	if ticket.CreatedAt == nil {
		ticket.CreatedAt = &now
	}

	ticket.UpdatedAt = now

	err := tr.store.write(ticketsCollection, ticket.ID, ticket)
	if err != nil {
		return persistence.NewEntityError("Save", "ticket", ticket.ID, err)
	}

	return nil
}

// ListByStatus returns tickets in any of the given statuses, oldest first.
func (tr *TicketRepository) ListByStatus(_ context.Context, statuses ...string) ([]*models.Ticket, error) {
	tickets := make([]*models.Ticket, 0)

	err := each(tr.store, ticketsCollection, func(t *models.Ticket) error {
		if slices.Contains(statuses, t.Status) {
			tickets = append(tickets, t)
		}

		return nil
	})
	if err != nil {
		return nil, persistence.NewEntityError("ListByStatus", "ticket", "", err)
	}

	sort.SliceStable(tickets, func(i, j int) bool {
		return createdAt(tickets[i]).Before(createdAt(tickets[j]))
	})

	return tickets, nil
}

func createdAt(t *models.Ticket) time.Time {
	if t.CreatedAt == nil {
		return time.Time{}
	}

	return *t.CreatedAt
}

// NotificationRepository handles notification file operations.
type NotificationRepository struct {
	store *store
}

// Create writes a new notification.
func (nr *NotificationRepository) Create(_ context.Context, notification *models.Notification) error {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	err := nr.store.write(notificationsCollection, notification.ID, notification)
	if err != nil {
		return persistence.NewEntityError("Create", "notification", notification.ID, err)
	}

	return nil
}

// ListByUser returns the notifications addressed to a user, newest first.
func (nr *NotificationRepository) ListByUser(_ context.Context, userID string) ([]*models.Notification, error) {
	notifications := make([]*models.Notification, 0)

	err := each(nr.store, notificationsCollection, func(n *models.Notification) error {
		if n.UserID != nil && *n.UserID == userID {
			notifications = append(notifications, n)
		}

		return nil
	})
	if err != nil {
		return nil, persistence.NewEntityError("ListByUser", "notification", userID, err)
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	return notifications, nil
}

// TechnicianRepository handles technician file operations.
type TechnicianRepository struct {
	store *store
}

// ListAvailable returns available technicians ordered by name then ID.
func (tr *TechnicianRepository) ListAvailable(_ context.Context) ([]*models.Technician, error) {
	technicians := make([]*models.Technician, 0)

	err := each(tr.store, techniciansCollection, func(t *models.Technician) error {
		if t.Availability == models.AvailabilityAvailable {
			technicians = append(technicians, t)
		}

		return nil
	})
	if err != nil {
		return nil, persistence.NewEntityError("ListAvailable", "technician", "", err)
	}

	sort.SliceStable(technicians, func(i, j int) bool {
		if technicians[i].Name == technicians[j].Name {
			return technicians[i].ID < technicians[j].ID
		}

		return technicians[i].Name < technicians[j].Name
	})

	return technicians, nil
}

// Save writes the technician record.
func (tr *TechnicianRepository) Save(_ context.Context, technician *models.Technician) error {
	err := tr.store.write(techniciansCollection, technician.ID, technician)
	if err != nil {
		return persistence.NewEntityError("Save", "technician", technician.ID, err)
	}

	return nil
}

// TemplateRepository handles ticket template file operations.
type TemplateRepository struct {
	store *store
}

// GetByID retrieves a template by its ID.
func (tr *TemplateRepository) GetByID(_ context.Context, id string) (*models.TicketTemplate, error) {
	var template models.TicketTemplate

	err := tr.store.read(templatesCollection, id, &template, persistence.ErrTemplateNotFound)
	if err != nil {
		return nil, persistence.NewEntityError("GetByID", "template", id, err)
	}

	return &template, nil
}

// ListActive returns active templates ordered by name.
func (tr *TemplateRepository) ListActive(_ context.Context) ([]*models.TicketTemplate, error) {
	templates := make([]*models.TicketTemplate, 0)

	err := each(tr.store, templatesCollection, func(t *models.TicketTemplate) error {
		if t.Active {
			templates = append(templates, t)
		}

		return nil
	})
	if err != nil {
		return nil, persistence.NewEntityError("ListActive", "template", "", err)
	}

	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})

	return templates, nil
}

// Save writes the template record.
func (tr *TemplateRepository) Save(_ context.Context, template *models.TicketTemplate) error {
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	err := tr.store.write(templatesCollection, template.ID, template)
	if err != nil {
		return persistence.NewEntityError("Save", "template", template.ID, err)
	}

	return nil
}
