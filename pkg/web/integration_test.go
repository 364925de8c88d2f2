//go:build integration

package web_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence/postgresql"
	"github.com/dukex/careflow/pkg/services"
	"github.com/dukex/careflow/pkg/testutil"
	"github.com/dukex/careflow/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupIntegrationAPI(t *testing.T) *testAPI {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("careflow_web"),
		postgres.WithUsername("careflow"),
		postgres.WithPassword("careflow"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	p, err := postgresql.NewPersistence(ctx, newTestLogger(), databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() { _ = p.Close(context.Background()) })

	return &testAPI{app: newApp(p, services.TicketEventsInline), persistence: p}
}

func TestIntegration_CriticalTicketEscalation(t *testing.T) {
	api := setupIntegrationAPI(t)

	status, body := api.do(t, http.MethodPost, "/workflows", services.CreateWorkflowRequest{Name: "Critical escalation"})
	require.Equal(t, http.StatusCreated, status, string(body))

	wf := decode[models.Workflow](t, body)

	status, body = api.do(t, http.MethodPost, "/workflows/"+wf.ID+"/steps", services.AddStepRequest{
		Name:     "On critical ticket",
		StepType: "trigger",
		Config: map[string]any{
			"trigger_type": "ticket_created",
			"conditions":   []any{map[string]any{"type": "priority_match", "value": "critical"}},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	trigger := decode[models.WorkflowStep](t, body)

	status, body = api.do(t, http.MethodPost, "/workflows/"+wf.ID+"/steps", services.AddStepRequest{
		Name:     "Assign a technician",
		StepType: "action",
		Config:   map[string]any{"action_type": "assign_ticket", "assignment_rule": "auto"},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	assign := decode[models.WorkflowStep](t, body)

	status, body = api.do(t, http.MethodPut, "/workflows/"+wf.ID+"/steps/"+trigger.ID+"/next",
		web.LinkStepRequest{NextStepID: &assign.ID})
	require.Equal(t, http.StatusOK, status, string(body))

	technician := testutil.CreateTestTechnician("dana", "equipment")
	require.NoError(t, api.persistence.TechnicianRepository().Save(t.Context(), technician))

	ticket := api.seedTicket(t, testutil.WithPriority(models.PriorityCritical))

	status, body = api.do(t, http.MethodPost, "/events/tickets", web.TicketEventRequest{
		Event:    "ticket_created",
		TicketID: ticket.ID,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	response := decode[web.DispatchResponse](t, body)
	assert.Equal(t, []string{wf.ID}, response.Matched)

	stored, err := api.persistence.TicketRepository().GetByID(t.Context(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, technician.UserID, *stored.AssignedTo)
	assert.Equal(t, models.TicketStatusInProgress, stored.Status)

	status, body = api.do(t, http.MethodGet, "/executions?ticket_id="+ticket.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"completed"`)
}
