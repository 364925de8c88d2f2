// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidStepType   = errors.New("invalid step type")
	ErrInvalidStepConfig = errors.New("invalid step config")
	ErrInvalidNextStep   = errors.New("next step must be a step of the same workflow")
	ErrStepCycle         = errors.New("next step would create a cycle")
	ErrInvalidEventsMode = errors.New("invalid ticket events mode")
	ErrTicketIDRequired  = errors.New("ticket ID is required")
	ErrEventNameRequired = errors.New("event name is required")
	ErrTemplateWorkflow  = errors.New("template workflow does not exist")
	ErrStepNotInWorkflow = errors.New("step does not belong to the workflow")

	// Business Logic Conflicts (409 Conflict).
	ErrWorkflowInactive = errors.New("workflow is inactive")
	ErrTemplateInactive = errors.New("template is inactive")

	// Manual runs that ended without reaching the end of the chain.
	ErrExecutionStopped = errors.New("workflow stopped before the end of its chain")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidStepType) ||
		errors.Is(err, ErrInvalidStepConfig) ||
		errors.Is(err, ErrInvalidNextStep) ||
		errors.Is(err, ErrStepCycle) ||
		errors.Is(err, ErrInvalidEventsMode) ||
		errors.Is(err, ErrTicketIDRequired) ||
		errors.Is(err, ErrEventNameRequired) ||
		errors.Is(err, ErrTemplateWorkflow) ||
		errors.Is(err, ErrStepNotInWorkflow)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowInactive) ||
		errors.Is(err, ErrTemplateInactive)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
