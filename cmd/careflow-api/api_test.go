package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/careflow/pkg/persistence/file"
	"github.com/dukex/careflow/pkg/services"
	"github.com/dukex/careflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())

	return NewAPI(
		slog.Default(),
		persistence,
		nil,
		services.TicketEventsInline,
		workflow.DefaultMaxSteps,
		nil,
	).App()
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "careflow API", body)
}

func TestAPI_HealthEndpoints(t *testing.T) {
	app := setupTestApp(t)

	status, _ := get(t, app, "/livez")
	assert.Equal(t, http.StatusOK, status)

	status, body := get(t, app, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "healthy")
}

func TestAPI_MetricsEndpoint(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/metrics")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "careflow_executions_total")
}

func TestAPI_WorkflowRoutesMounted(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/workflows")

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"workflows":[],"total_count":0}`, body)
}
