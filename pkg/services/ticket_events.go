package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/careflow/pkg/eventbus"
	"github.com/dukex/careflow/pkg/events"
	"github.com/dukex/careflow/pkg/workflow"
)

// TicketEventsMode selects how ticket lifecycle events reach the trigger dispatcher.
type TicketEventsMode string

const (
	// TicketEventsOff emits nothing implicitly; only explicit event calls dispatch.
	TicketEventsOff TicketEventsMode = "off"
	// TicketEventsInline dispatches synchronously in the calling process.
	TicketEventsInline TicketEventsMode = "inline"
	// TicketEventsBus publishes events.TicketEvent for careflow-dispatcher to consume.
	TicketEventsBus TicketEventsMode = "bus"
)

// ParseTicketEventsMode parses off, inline or bus. An empty value means off.
func ParseTicketEventsMode(value string) (TicketEventsMode, error) {
	switch mode := TicketEventsMode(value); mode {
	case "":
		return TicketEventsOff, nil
	case TicketEventsOff, TicketEventsInline, TicketEventsBus:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q (allowed: off, inline, bus)", ErrInvalidEventsMode, value)
	}
}

// Dispatcher matches ticket events against workflow triggers.
type Dispatcher interface {
	Dispatch(ctx context.Context, event, ticketID string, eventContext map[string]any) (*workflow.DispatchResult, error)
}

// TicketEvents routes ticket lifecycle events according to the configured mode.
type TicketEvents struct {
	mode       TicketEventsMode
	dispatcher Dispatcher
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
}

// NewTicketEvents creates the ticket event router. Bus mode needs a publisher; the other
// modes need a dispatcher for explicit submissions.
func NewTicketEvents(mode TicketEventsMode, dispatcher Dispatcher, publisher eventbus.EventPublisher, logger *slog.Logger) *TicketEvents {
	return &TicketEvents{
		mode:       mode,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger.With("module", "ticket_events", "mode", string(mode)),
	}
}

func (t *TicketEvents) Mode() TicketEventsMode {
	return t.mode
}

// Emit delivers an implicit lifecycle event, such as ticket_created after a template is used.
// In off mode nothing happens. The result is nil unless the event was dispatched inline.
func (t *TicketEvents) Emit(ctx context.Context, event, ticketID string, eventContext map[string]any) (*workflow.DispatchResult, error) {
	if t.mode == TicketEventsOff {
		return nil, nil
	}

	return t.Submit(ctx, event, ticketID, eventContext)
}

// Submit delivers an explicit event call: published in bus mode, dispatched inline otherwise.
// The result is nil when the event was published.
func (t *TicketEvents) Submit(ctx context.Context, event, ticketID string, eventContext map[string]any) (*workflow.DispatchResult, error) {
	if event == "" {
		return nil, NewValidationError("Submit", "EVENT_REQUIRED", "event name is required", ErrEventNameRequired)
	}

	if ticketID == "" {
		return nil, NewValidationError("Submit", "TICKET_ID_REQUIRED", "ticket ID is required", ErrTicketIDRequired)
	}

	if eventContext == nil {
		eventContext = map[string]any{}
	}

	if t.mode == TicketEventsBus {
		err := t.publisher.Publish(ctx, ticketID, events.NewTicketEvent(event, ticketID, eventContext))
		if err != nil {
			return nil, fmt.Errorf("failed to publish ticket event: %w", err)
		}

		t.logger.DebugContext(ctx, "Published ticket event", "event", event, "ticket_id", ticketID)

		return nil, nil
	}

	return t.dispatcher.Dispatch(ctx, event, ticketID, eventContext)
}
