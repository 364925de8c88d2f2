// Package web provides the HTTP handlers of the careflow API.
package web

import (
	"net/http"
	"time"

	"github.com/dukex/careflow/pkg/services"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService  *services.Workflow
	templateService  *services.Template
	executionService *services.Execution
	ticketEvents     *services.TicketEvents
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	templateService *services.Template,
	executionService *services.Execution,
	ticketEvents *services.TicketEvents,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		templateService:  templateService,
		executionService: executionService,
		ticketEvents:     ticketEvents,
	}
}

// Register mounts every careflow route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Post("/:id/steps", h.AddWorkflowStep)
	w.Put("/:id/steps/:stepId/next", h.LinkWorkflowStep)
	w.Post("/:id/deactivate", h.DeactivateWorkflow)
	w.Post("/:id/trigger", h.TriggerWorkflow)

	t := router.Group("/templates")
	t.Get("/", h.GetTemplates)
	t.Post("/", h.CreateTemplate)
	t.Post("/:id/use", h.UseTemplate)

	e := router.Group("/executions")
	e.Get("/", h.GetExecutions)
	e.Get("/:id", h.GetExecution)

	router.Post("/events/tickets", h.SubmitTicketEvent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "careflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "careflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository":    repositoryCheck,
			"ticket_events": string(h.ticketEvents.Mode()),
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.ListActive(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req services.CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.workflowService.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) AddWorkflowStep(c fiber.Ctx) error {
	var req services.AddStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	step, err := h.workflowService.AddStep(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(step)
}

func (h *APIHandlers) LinkWorkflowStep(c fiber.Ctx) error {
	var req LinkStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	step, err := h.workflowService.LinkStep(c.Context(), c.Params("id"), c.Params("stepId"), req.NextStepID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(step)
}

func (h *APIHandlers) DeactivateWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Deactivate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// TriggerWorkflow runs a workflow manually. Only a run that reached the end of its chain
// is answered with 200; recorded runs that failed or stopped early are problems naming
// the execution.
func (h *APIHandlers) TriggerWorkflow(c fiber.Ctx) error {
	var req services.TriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	execution, err := h.workflowService.Trigger(c.Context(), c.Params("id"), req)
	if err != nil && execution == nil {
		return handleServiceError(c, err)
	}

	if err != nil {
		return executionProblem(c, execution, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"execution": execution,
	})
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	templates, err := h.templateService.ListActive(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"templates": templates})
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var req services.CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	template, err := h.templateService.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

func (h *APIHandlers) UseTemplate(c fiber.Ctx) error {
	var req services.UseTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.templateService.Use(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetExecutions lists the latest executions, or those of one ticket with ?ticket_id=.
func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	var (
		executions []*services.ExecutionSummary
		err        error
	)

	if ticketID := c.Query("ticket_id"); ticketID != "" {
		executions, err = h.executionService.ListByTicket(c.Context(), ticketID)
	} else {
		executions, err = h.executionService.ListRecent(c.Context())
	}

	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// SubmitTicketEvent is the call site for ticket lifecycle events. Published events are
// answered with 202; inline dispatches with the dispatch outcome.
func (h *APIHandlers) SubmitTicketEvent(c fiber.Ctx) error {
	var req TicketEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.ticketEvents.Submit(c.Context(), req.Event, req.TicketID, req.Context)
	if err != nil {
		return handleServiceError(c, err)
	}

	if result == nil {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "published"})
	}

	return c.JSON(NewDispatchResponse(result))
}
