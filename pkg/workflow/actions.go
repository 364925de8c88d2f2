package workflow

import (
	"context"
	"fmt"

	"github.com/dukex/careflow/pkg/models"
)

func (e *Engine) defaultActions() map[models.ActionType]ActionHandler {
	return map[models.ActionType]ActionHandler{
		models.ActionAssignTicket:     e.assignTicket,
		models.ActionUpdatePriority:   e.updatePriority,
		models.ActionSendNotification: e.sendNotification,
		models.ActionSetSLA:           setSLA,
		models.ActionEscalateTicket:   e.escalateTicket,
		models.ActionAutoClose:        e.autoClose,
	}
}

func (e *Engine) assignTicket(ctx context.Context, ticket *models.Ticket, config models.StepConfig) (bool, error) {
	var assignee string

	switch rule := config.StringOr("assignment_rule", models.AssignmentRuleAuto); rule {
	case models.AssignmentRuleAuto:
		technician, err := e.assigner.Select(ctx, ticket)
		if err != nil {
			return false, err
		}

		if technician == nil {
			return false, nil
		}

		assignee = technician.AssigneeID()
	case models.AssignmentRuleSpecificUser:
		assignee = config.String("user_id")
		if assignee == "" {
			return false, nil
		}
	default:
		return false, nil
	}

	ticket.AssignedTo = &assignee
	if ticket.Status == models.TicketStatusOpen {
		ticket.Status = models.TicketStatusInProgress
	}

	return e.saveTicket(ctx, ticket)
}

func (e *Engine) updatePriority(ctx context.Context, ticket *models.Ticket, config models.StepConfig) (bool, error) {
	priority := models.Priority(config.String("priority"))
	if !priority.IsValid() {
		return false, nil
	}

	ticket.Priority = priority

	return e.saveTicket(ctx, ticket)
}

func (e *Engine) sendNotification(ctx context.Context, ticket *models.Ticket, config models.StepConfig) (bool, error) {
	var recipient *string

	if userID := config.String("user_id"); userID != "" {
		recipient = &userID
	} else if ticket.AssignedTo != nil {
		assigned := *ticket.AssignedTo
		recipient = &assigned
	}

	notification := &models.Notification{
		ID:              e.newID(),
		UserID:          recipient,
		Title:           config.StringOr("title", models.DefaultNotificationTitle),
		Message:         config.StringOr("message", models.DefaultNotificationMessage),
		Type:            config.StringOr("notification_type", models.DefaultNotificationType),
		RelatedTicketID: ticket.ID,
		CreatedAt:       e.now(),
	}

	err := e.persistence.NotificationRepository().Create(ctx, notification)
	if err != nil {
		return false, fmt.Errorf("failed to create notification: %w", err)
	}

	return true, nil
}

// setSLA is reserved; it records nothing yet.
func setSLA(context.Context, *models.Ticket, models.StepConfig) (bool, error) {
	return true, nil
}

func (e *Engine) escalateTicket(ctx context.Context, ticket *models.Ticket, _ models.StepConfig) (bool, error) {
	ticket.Priority = models.PriorityCritical

	return e.saveTicket(ctx, ticket)
}

func (e *Engine) autoClose(ctx context.Context, ticket *models.Ticket, _ models.StepConfig) (bool, error) {
	resolvedAt := e.now()
	ticket.Status = models.TicketStatusClosed
	ticket.ResolvedAt = &resolvedAt

	return e.saveTicket(ctx, ticket)
}

func (e *Engine) saveTicket(ctx context.Context, ticket *models.Ticket) (bool, error) {
	err := e.persistence.TicketRepository().Save(ctx, ticket)
	if err != nil {
		return false, fmt.Errorf("failed to save ticket %s: %w", ticket.ID, err)
	}

	return true, nil
}
