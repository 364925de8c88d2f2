package web

import (
	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/workflow"
)

// LinkStepRequest sets or clears the next step of a workflow step.
type LinkStepRequest struct {
	NextStepID *string `json:"next_step_id"`
}

// TicketEventRequest is the body of the ticket event call site.
type TicketEventRequest struct {
	Event    string         `json:"event"`
	TicketID string         `json:"ticket_id"`
	Context  map[string]any `json:"context"`
}

// DispatchResponse reports an inline dispatch. Errors holds the error text per workflow ID.
type DispatchResponse struct {
	Matched    []string                    `json:"matched"`
	Executions []*models.WorkflowExecution `json:"executions"`
	Errors     map[string]string           `json:"errors,omitempty"`
}

// NewDispatchResponse converts a dispatch result for JSON output.
func NewDispatchResponse(result *workflow.DispatchResult) DispatchResponse {
	response := DispatchResponse{
		Matched:    result.Matched,
		Executions: result.Executions,
	}

	if response.Matched == nil {
		response.Matched = []string{}
	}

	if response.Executions == nil {
		response.Executions = []*models.WorkflowExecution{}
	}

	if len(result.Errors) > 0 {
		response.Errors = make(map[string]string, len(result.Errors))
		for workflowID, err := range result.Errors {
			response.Errors[workflowID] = err.Error()
		}
	}

	return response
}
