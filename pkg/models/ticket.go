package models

import "time"

// Priority is the urgency of a ticket.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityRank = map[Priority]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityCritical: 4,
}

// Rank returns the ordinal of the priority, 0 for unknown values.
func (p Priority) Rank() int {
	return priorityRank[p]
}

// IsValid reports whether the priority is one of low, medium, high, critical.
func (p Priority) IsValid() bool {
	_, ok := priorityRank[p]

	return ok
}

// Ticket statuses.
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusClosed     = "closed"
)

// Ticket is a reported issue routed to a department. The workflow engine reads
// it and mutates Status, Priority, AssignedTo and ResolvedAt as action effects.
type Ticket struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     Priority   `json:"priority"`
	Category     string     `json:"category"`
	PatientID    string     `json:"patient_id,omitempty"`
	DepartmentID string     `json:"department_id"`
	AssignedTo   *string    `json:"assigned_to,omitempty"`
	TemplateID   *string    `json:"template_id,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// Notification is a message addressed to a user, optionally about a ticket.
// UserID may be nil when the workflow resolved no recipient.
type Notification struct {
	ID              string    `json:"id"`
	UserID          *string   `json:"user_id"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Type            string    `json:"type"`
	RelatedTicketID string    `json:"related_ticket_id,omitempty"`
	IsRead          bool      `json:"is_read"`
	CreatedAt       time.Time `json:"created_at"`
}

// Technician availability values.
const (
	AvailabilityAvailable = "available"
	AvailabilityBusy      = "busy"
	AvailabilityOffDuty   = "off_duty"
)

// Technician is a maintenance user that tickets can be auto-assigned to.
type Technician struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	UserID       string   `json:"user_id"`
	Skills       []string `json:"skills"`
	Availability string   `json:"availability"`
}

// TicketTemplate pre-fills tickets and optionally names a workflow to run on them.
type TicketTemplate struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"                   validate:"required"`
	Description  string         `json:"description,omitempty"`
	Category     string         `json:"category"               validate:"required"`
	Priority     Priority       `json:"priority"               validate:"omitempty,oneof=low medium high critical"`
	DepartmentID string         `json:"department_id,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
	WorkflowID   *string        `json:"workflow_id,omitempty"`
	Active       bool           `json:"is_active"`
	CreatedBy    string         `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// AssigneeID is the value written to Ticket.AssignedTo when the technician takes a ticket.
func (t *Technician) AssigneeID() string {
	if t.UserID != "" {
		return t.UserID
	}

	return t.ID
}
