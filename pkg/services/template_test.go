package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/careflow/pkg/events"
	"github.com/dukex/careflow/pkg/mocks"
	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
	"github.com/dukex/careflow/pkg/persistence/file"
	"github.com/dukex/careflow/pkg/testutil"
	"github.com/dukex/careflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type templateFixture struct {
	persistence *file.Persistence
	engine      *workflow.Engine
	dispatcher  *workflow.Dispatcher
}

func newTemplateFixture(t *testing.T) *templateFixture {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	engine := workflow.NewEngine(p, newTestLogger())

	return &templateFixture{
		persistence: p,
		engine:      engine,
		dispatcher:  workflow.NewDispatcher(p, engine, newTestLogger(), nil),
	}
}

func (f *templateFixture) service(mode TicketEventsMode, publisher *mocks.MockEventBus) *Template {
	ticketEvents := NewTicketEvents(mode, f.dispatcher, nil, newTestLogger())
	if publisher != nil {
		ticketEvents = NewTicketEvents(mode, f.dispatcher, publisher, newTestLogger())
	}

	return NewTemplate(f.persistence, f.engine, ticketEvents, newTestLogger())
}

func (f *templateFixture) saveWorkflow(t *testing.T, steps ...*models.WorkflowStep) *models.Workflow {
	t.Helper()

	wf := testutil.CreateTestWorkflow(testutil.Chain(steps...)...)
	require.NoError(t, f.persistence.WorkflowRepository().Save(t.Context(), wf))

	return wf
}

func (f *templateFixture) saveTemplate(t *testing.T, workflowID *string) *models.TicketTemplate {
	t.Helper()

	template := &models.TicketTemplate{
		ID:           "tpl-infusion",
		Name:         "Infusion pump failure",
		Description:  "Pump reports occlusion",
		Category:     "equipment",
		Priority:     models.PriorityHigh,
		DepartmentID: "icu",
		WorkflowID:   workflowID,
		Active:       true,
	}
	require.NoError(t, f.persistence.TemplateRepository().Save(t.Context(), template))

	return template
}

func TestTemplate_Create(t *testing.T) {
	f := newTemplateFixture(t)
	service := f.service(TicketEventsOff, nil)
	wf := f.saveWorkflow(t, testutil.CreateTestStep(models.StepTypeAction, map[string]any{"action_type": "set_sla"}))

	template, err := service.Create(t.Context(), CreateTemplateRequest{
		Name:       "Bed rail broken",
		Category:   "facilities",
		WorkflowID: &wf.ID,
	})

	require.NoError(t, err)
	assert.True(t, template.Active)
	assert.Equal(t, models.PriorityMedium, template.Priority)

	active, err := service.ListActive(t.Context())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, template.ID, active[0].ID)

	missing := "wf-missing"
	_, err = service.Create(t.Context(), CreateTemplateRequest{Name: "Orphan", Category: "facilities", WorkflowID: &missing})
	require.ErrorIs(t, err, ErrTemplateWorkflow)

	_, err = service.Create(t.Context(), CreateTemplateRequest{Name: "Loud", Category: "facilities", Priority: "urgent"})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestTemplate_UseRunsTemplateWorkflow(t *testing.T) {
	f := newTemplateFixture(t)
	service := f.service(TicketEventsOff, nil)

	wf := f.saveWorkflow(t,
		testutil.CreateTestStep(models.StepTypeAction, map[string]any{"action_type": "escalate_ticket"}),
	)
	template := f.saveTemplate(t, &wf.ID)

	result, err := service.Use(t.Context(), template.ID, UseTemplateRequest{Title: "Pump 4 occluded", PatientID: "p-12"})

	require.NoError(t, err)
	require.NotNil(t, result.Execution)
	assert.Empty(t, result.ExecutionError)
	assert.Equal(t, models.ExecutionStatusCompleted, result.Execution.Status)
	assert.Equal(t, "template_used", result.Execution.Context["trigger_type"])
	assert.Equal(t, template.ID, result.Execution.Context["template_id"])

	ticket := result.Ticket
	assert.Equal(t, "Pump 4 occluded", ticket.Title)
	assert.Equal(t, "Pump reports occlusion", ticket.Description)
	assert.Equal(t, "equipment", ticket.Category)
	assert.Equal(t, "icu", ticket.DepartmentID)
	assert.Equal(t, "p-12", ticket.PatientID)
	require.NotNil(t, ticket.TemplateID)
	assert.Equal(t, template.ID, *ticket.TemplateID)
	// The reloaded ticket carries the escalation.
	assert.Equal(t, models.PriorityCritical, ticket.Priority)
}

func TestTemplate_UseKeepsTicketWhenWorkflowFails(t *testing.T) {
	f := newTemplateFixture(t)
	f.engine = workflow.NewEngine(f.persistence, newTestLogger(),
		workflow.WithAction(models.ActionSetSLA, func(context.Context, *models.Ticket, models.StepConfig) (bool, error) {
			return false, errors.New("sla service down")
		}),
	)
	service := f.service(TicketEventsOff, nil)

	wf := f.saveWorkflow(t, testutil.CreateTestStep(models.StepTypeAction, map[string]any{"action_type": "set_sla"}))
	template := f.saveTemplate(t, &wf.ID)

	result, err := service.Use(t.Context(), template.ID, UseTemplateRequest{Title: "Pump 2", Priority: "low"})

	require.NoError(t, err)
	assert.Contains(t, result.ExecutionError, "sla service down")
	require.NotNil(t, result.Execution)
	assert.Equal(t, models.ExecutionStatusFailed, result.Execution.Status)
	assert.Equal(t, models.PriorityLow, result.Ticket.Priority)

	stored, err := f.persistence.TicketRepository().GetByID(t.Context(), result.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusOpen, stored.Status)
}

func TestTemplate_UseInlineDispatchesTicketCreated(t *testing.T) {
	f := newTemplateFixture(t)
	service := f.service(TicketEventsInline, nil)

	trigger := testutil.CreateTestStep(models.StepTypeTrigger,
		testutil.TriggerConfig(models.EventTicketCreated, map[string]any{"type": "category_match", "value": "equipment"}))
	escalate := testutil.CreateTestStep(models.StepTypeAction, map[string]any{"action_type": "escalate_ticket"})
	wf := f.saveWorkflow(t, trigger, escalate)

	template := f.saveTemplate(t, nil)

	result, err := service.Use(t.Context(), template.ID, UseTemplateRequest{Title: "Monitor dark"})

	require.NoError(t, err)
	assert.Nil(t, result.Execution)
	assert.Equal(t, models.PriorityCritical, result.Ticket.Priority)

	executions, err := f.persistence.ExecutionRepository().ListByTicket(t.Context(), result.Ticket.ID)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, wf.ID, executions[0].WorkflowID)
	assert.Equal(t, models.EventTicketCreated, executions[0].Context["trigger_type"])
}

func TestTemplate_UseOffModeEmitsNothing(t *testing.T) {
	f := newTemplateFixture(t)
	service := f.service(TicketEventsOff, nil)

	f.saveWorkflow(t,
		testutil.CreateTestStep(models.StepTypeTrigger, testutil.TriggerConfig(models.EventTicketCreated)),
		testutil.CreateTestStep(models.StepTypeAction, map[string]any{"action_type": "escalate_ticket"}),
	)
	template := f.saveTemplate(t, nil)

	result, err := service.Use(t.Context(), template.ID, UseTemplateRequest{Title: "Monitor dark"})

	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, result.Ticket.Priority)

	executions, err := f.persistence.ExecutionRepository().ListByTicket(t.Context(), result.Ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, executions)
}

func TestTemplate_UseBusModePublishes(t *testing.T) {
	f := newTemplateFixture(t)
	bus := &mocks.MockEventBus{}
	service := f.service(TicketEventsBus, bus)
	template := f.saveTemplate(t, nil)

	bus.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(event *events.TicketEvent) bool {
		return event.Event == models.EventTicketCreated && event.Context["template_id"] == template.ID
	})).Return(nil).Once()

	result, err := service.Use(t.Context(), template.ID, UseTemplateRequest{Title: "Monitor dark"})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Ticket.ID)
	bus.AssertExpectations(t)
}

func TestTemplate_UseRejections(t *testing.T) {
	f := newTemplateFixture(t)
	service := f.service(TicketEventsOff, nil)

	template := f.saveTemplate(t, nil)
	template.Active = false
	require.NoError(t, f.persistence.TemplateRepository().Save(t.Context(), template))

	_, err := service.Use(t.Context(), template.ID, UseTemplateRequest{Title: "Any"})
	require.ErrorIs(t, err, ErrTemplateInactive)
	assert.True(t, IsConflictError(err))

	_, err = service.Use(t.Context(), "tpl-missing", UseTemplateRequest{Title: "Any"})
	assert.True(t, persistence.IsTemplateNotFound(err))

	_, err = service.Use(t.Context(), template.ID, UseTemplateRequest{})
	require.ErrorIs(t, err, ErrInvalidRequest)
}
