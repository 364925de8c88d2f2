package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

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

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func setupWorkflowService(t *testing.T) (*Workflow, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	engine := workflow.NewEngine(p, newTestLogger())

	return NewWorkflow(p, engine), p
}

func createWorkflow(t *testing.T, service *Workflow) *models.Workflow {
	t.Helper()

	wf, err := service.Create(t.Context(), CreateWorkflowRequest{Name: "Critical escalation", CreatedBy: "admin"})
	require.NoError(t, err)

	return wf
}

func TestWorkflow_Create(t *testing.T) {
	service, p := setupWorkflowService(t)

	wf, err := service.Create(t.Context(), CreateWorkflowRequest{Name: "Equipment triage", Description: "Routes pump alarms"})

	require.NoError(t, err)
	assert.NotEmpty(t, wf.ID)
	assert.True(t, wf.Active)
	assert.Equal(t, models.WorkflowCategoryTicket, wf.Category)

	stored, err := p.WorkflowRepository().GetByID(t.Context(), wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Equipment triage", stored.Name)

	_, err = service.Create(t.Context(), CreateWorkflowRequest{Name: "ab"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestWorkflow_AddStep(t *testing.T) {
	service, _ := setupWorkflowService(t)
	wf := createWorkflow(t, service)

	first, err := service.AddStep(t.Context(), wf.ID, AddStepRequest{
		Name:     "On create",
		StepType: "trigger",
		Config:   map[string]any{"trigger_type": "ticket_created"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.StepOrder)
	assert.Nil(t, first.NextStepID)

	second, err := service.AddStep(t.Context(), wf.ID, AddStepRequest{
		Name:     "Escalate",
		StepType: "action",
		Config:   map[string]any{"action_type": "escalate_ticket"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.StepOrder)

	third, err := service.AddStep(t.Context(), wf.ID, AddStepRequest{
		Name:       "Pointing back",
		StepType:   "action",
		Config:     map[string]any{"action_type": "set_sla"},
		NextStepID: &second.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, third.NextStepID)
	assert.Equal(t, second.ID, *third.NextStepID)

	loaded, err := service.FetchByID(t.Context(), wf.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Steps, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{loaded.Steps[0].ID, loaded.Steps[1].ID, loaded.Steps[2].ID})
}

func TestWorkflow_AddStepValidation(t *testing.T) {
	service, p := setupWorkflowService(t)
	wf := createWorkflow(t, service)

	otherStep := testutil.CreateTestStep(models.StepTypeAction, map[string]any{"action_type": "auto_close"})
	other := testutil.CreateTestWorkflow(otherStep)
	require.NoError(t, p.WorkflowRepository().Save(t.Context(), other))

	foreign := otherStep.ID
	empty := ""

	tests := []struct {
		name    string
		req     AddStepRequest
		wantErr error
	}{
		{
			name:    "missing name",
			req:     AddStepRequest{StepType: "action", Config: map[string]any{"action_type": "auto_close"}},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "unknown step type",
			req:     AddStepRequest{Name: "Loop", StepType: "loop"},
			wantErr: ErrInvalidStepType,
		},
		{
			name:    "config fails schema",
			req:     AddStepRequest{Name: "Bump", StepType: "action", Config: map[string]any{"action_type": "update_priority"}},
			wantErr: ErrInvalidStepConfig,
		},
		{
			name:    "next step of another workflow",
			req:     AddStepRequest{Name: "Close", StepType: "action", Config: map[string]any{"action_type": "auto_close"}, NextStepID: &foreign},
			wantErr: ErrInvalidNextStep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.AddStep(t.Context(), wf.ID, tt.req)

			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}

	t.Run("empty next step is no link", func(t *testing.T) {
		step, err := service.AddStep(t.Context(), wf.ID, AddStepRequest{
			Name: "Close", StepType: "action", Config: map[string]any{"action_type": "auto_close"}, NextStepID: &empty,
		})

		require.NoError(t, err)
		assert.Nil(t, step.NextStepID)
	})

	t.Run("missing workflow", func(t *testing.T) {
		_, err := service.AddStep(t.Context(), "missing", AddStepRequest{
			Name: "Close", StepType: "action", Config: map[string]any{"action_type": "auto_close"},
		})

		assert.True(t, persistence.IsWorkflowNotFound(err))
	})
}

func TestWorkflow_LinkStep(t *testing.T) {
	service, _ := setupWorkflowService(t)
	wf := createWorkflow(t, service)

	add := func(name string) *models.WorkflowStep {
		step, err := service.AddStep(t.Context(), wf.ID, AddStepRequest{
			Name: name, StepType: "action", Config: map[string]any{"action_type": "set_sla"},
		})
		require.NoError(t, err)

		return step
	}

	a, b, c := add("a"), add("b"), add("c")

	_, err := service.LinkStep(t.Context(), wf.ID, a.ID, &b.ID)
	require.NoError(t, err)

	_, err = service.LinkStep(t.Context(), wf.ID, b.ID, &c.ID)
	require.NoError(t, err)

	_, err = service.LinkStep(t.Context(), wf.ID, c.ID, &a.ID)
	require.ErrorIs(t, err, ErrStepCycle)

	_, err = service.LinkStep(t.Context(), wf.ID, c.ID, &c.ID)
	require.ErrorIs(t, err, ErrStepCycle)

	_, err = service.LinkStep(t.Context(), wf.ID, "missing", &a.ID)
	require.ErrorIs(t, err, ErrStepNotInWorkflow)

	unlinked, err := service.LinkStep(t.Context(), wf.ID, b.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, unlinked.NextStepID)

	// With b unlinked, c -> a no longer closes a cycle.
	_, err = service.LinkStep(t.Context(), wf.ID, c.ID, &a.ID)
	require.NoError(t, err)
}

func TestWorkflow_ListActiveAndDeactivate(t *testing.T) {
	service, p := setupWorkflowService(t)

	active := createWorkflow(t, service)
	_, err := service.AddStep(t.Context(), active.ID, AddStepRequest{
		Name: "Escalate", StepType: "action", Config: map[string]any{"action_type": "escalate_ticket"},
	})
	require.NoError(t, err)

	retired := createWorkflow(t, service)

	ticket := testutil.CreateTestTicket()
	require.NoError(t, p.TicketRepository().Save(t.Context(), ticket))

	_, err = service.Trigger(t.Context(), active.ID, TriggerRequest{TicketID: ticket.ID, TriggeredBy: "admin"})
	require.NoError(t, err)

	require.NoError(t, service.Deactivate(t.Context(), retired.ID))

	summaries, err := service.ListActive(t.Context())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, active.ID, summaries[0].ID)
	assert.Equal(t, 1, summaries[0].StepCount)
	assert.Equal(t, 1, summaries[0].ExecutionCount)

	_, err = service.Trigger(t.Context(), retired.ID, TriggerRequest{TicketID: ticket.ID})
	require.ErrorIs(t, err, ErrWorkflowInactive)
	assert.True(t, IsConflictError(err))

	err = service.Deactivate(t.Context(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflow_TriggerContext(t *testing.T) {
	executor := &mocks.MockExecutor{}
	service := NewWorkflow(mocks.NewMockPersistence(), executor)

	expected := map[string]any{
		"trigger_type": "manual",
		"triggered_by": "nurse-7",
		"reason":       "pump still alarming",
	}
	execution := &models.WorkflowExecution{ID: "exec-1", Status: models.ExecutionStatusCompleted}
	executor.On("Execute", mock.Anything, "wf-1", "ticket-1", expected).Return(execution, nil)

	got, err := service.Trigger(context.Background(), "wf-1", TriggerRequest{
		TicketID:    "ticket-1",
		TriggeredBy: "nurse-7",
		TriggerData: map[string]any{"reason": "pump still alarming"},
	})

	require.NoError(t, err)
	assert.Equal(t, execution, got)
	executor.AssertExpectations(t)

	_, err = service.Trigger(context.Background(), "wf-1", TriggerRequest{})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestWorkflow_TriggerStoppedRun(t *testing.T) {
	service, p := setupWorkflowService(t)

	ticket := testutil.CreateTestTicket()
	require.NoError(t, p.TicketRepository().Save(t.Context(), ticket))

	wf := testutil.CreateTestWorkflow(testutil.Chain(
		testutil.CreateTestStep(models.StepTypeCondition, map[string]any{"condition_type": "status_check", "status": "closed"}),
		testutil.CreateTestStep(models.StepTypeAction, map[string]any{"action_type": "escalate_ticket"}),
	)...)
	require.NoError(t, p.WorkflowRepository().Save(t.Context(), wf))

	execution, err := service.Trigger(t.Context(), wf.ID, TriggerRequest{TicketID: ticket.ID})

	require.ErrorIs(t, err, ErrExecutionStopped)
	require.NotNil(t, execution)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.True(t, execution.Stopped)
}

func TestWorkflow_HealthCheck(t *testing.T) {
	service, _ := setupWorkflowService(t)

	message, ok := service.HealthCheck(t.Context())

	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)
}
