package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/careflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewEntityError("GetByID", "workflow", "workflow-123", persistence.ErrWorkflowNotFound)
		ticketErr := persistence.NewEntityError("GetByID", "ticket", "ticket-1", persistence.ErrTicketNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.False(t, persistence.IsWorkflowNotFound(ticketErr))
		assert.True(t, persistence.IsTicketNotFound(ticketErr))
		assert.True(t, persistence.IsNotFound(workflowErr))
		assert.True(t, persistence.IsNotFound(ticketErr))

		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
	})

	t.Run("wrapped entity errors keep their identity", func(t *testing.T) {
		err := fmt.Errorf("loading chain: %w",
			persistence.NewEntityError("GetByID", "step", "s-9", persistence.ErrStepNotFound))

		assert.True(t, persistence.IsStepNotFound(err))

		var entityErr *persistence.EntityError
		assert.True(t, errors.As(err, &entityErr))
		assert.Equal(t, "s-9", entityErr.ID)
	})

	t.Run("entity error contains context", func(t *testing.T) {
		err := persistence.NewEntityError("SetActive", "workflow", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "SetActive")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("entity error without id", func(t *testing.T) {
		err := persistence.NewEntityError("ListActive", "template", "", errors.New("boom"))

		assert.Equal(t, "ListActive operation failed for template: boom", err.Error())
		assert.False(t, persistence.IsNotFound(err))
	})
}
