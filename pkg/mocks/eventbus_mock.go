package mocks

import (
	"context"

	"github.com/dukex/careflow/pkg/eventbus"
	"github.com/dukex/careflow/pkg/events"
	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/workflow"
	"github.com/stretchr/testify/mock"
)

// MockEventBus is a mock implementation of eventbus.EventBus interface.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}

// MockExecutor is a mock implementation of workflow.Executor interface.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, workflowID, ticketID string, triggerContext map[string]any) (*models.WorkflowExecution, error) {
	args := m.Called(ctx, workflowID, ticketID, triggerContext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowExecution), args.Error(1)
}

// MockDispatcher stands in for the trigger dispatcher in receivers and services.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, event, ticketID string, eventContext map[string]any) (*workflow.DispatchResult, error) {
	args := m.Called(ctx, event, ticketID, eventContext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*workflow.DispatchResult), args.Error(1)
}
