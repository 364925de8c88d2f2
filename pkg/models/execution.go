package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusPaused    ExecutionStatus = "paused" // Reserved, never set by the engine
)

// IsTerminal reports whether no further transitions are expected.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// WorkflowExecution is the audit record of one interpreter run against one ticket.
type WorkflowExecution struct {
	ID            string          `json:"id"`
	WorkflowID    string          `json:"workflow_id"`
	TicketID      string          `json:"ticket_id"`
	CurrentStepID *string         `json:"current_step_id,omitempty"`
	Status        ExecutionStatus `json:"status"`
	Context       map[string]any  `json:"context"`
	ExecutedSteps []string        `json:"executed_steps"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	// Stopped marks a completed run whose chain a step ended early by returning false.
	Stopped       bool            `json:"stopped"`
}

// Succeeded reports whether the run completed its whole chain.
func (e *WorkflowExecution) Succeeded() bool {
	return e.Status == ExecutionStatusCompleted && !e.Stopped
}

// Complete marks the execution as completed at the given time.
func (e *WorkflowExecution) Complete(at time.Time) {
	e.Status = ExecutionStatusCompleted
	e.CompletedAt = &at
}

// Fail marks the execution as failed with the error text at the given time.
func (e *WorkflowExecution) Fail(err error, at time.Time) {
	e.Status = ExecutionStatusFailed
	e.ErrorMessage = err.Error()
	e.CompletedAt = &at
}
