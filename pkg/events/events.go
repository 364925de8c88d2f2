// Package events defines event types for ticket lifecycle and workflow execution notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every careflow event; consumers route by the event type metadata.
const Topic = "careflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Ticket lifecycle events consumed by the trigger dispatcher.
	TicketEventType EventType = "ticket.event"

	// Workflow execution lifecycle events emitted by the engine.
	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a new event of the given type.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// TicketEvent asks the dispatcher to match Event (e.g. "ticket_created") against trigger steps.
type TicketEvent struct {
	BaseEvent

	Event    string         `json:"event"`
	TicketID string         `json:"ticket_id"`
	Context  map[string]any `json:"context,omitempty"`
}

func (t TicketEvent) GetType() EventType {
	return TicketEventType
}

// NewTicketEvent builds a ticket event ready to publish.
func NewTicketEvent(event, ticketID string, context map[string]any) *TicketEvent {
	return &TicketEvent{
		BaseEvent: NewBaseEvent(TicketEventType),
		Event:     event,
		TicketID:  ticketID,
		Context:   context,
	}
}

type WorkflowExecutionStarted struct {
	BaseEvent

	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	TicketID    string         `json:"ticket_id"`
	Context     map[string]any `json:"context,omitempty"`
}

func (w WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	WorkflowID    string        `json:"workflow_id"`
	ExecutionID   string        `json:"execution_id"`
	TicketID      string        `json:"ticket_id"`
	ExecutedSteps []string      `json:"executed_steps"`
	Duration      time.Duration `json:"duration"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	WorkflowID  string        `json:"workflow_id"`
	ExecutionID string        `json:"execution_id"`
	TicketID    string        `json:"ticket_id"`
	StepID      string        `json:"step_id,omitempty"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}
