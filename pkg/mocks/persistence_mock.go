package mocks

import (
	"context"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListActive(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)

	return args.Error(0)
}

// MockStepRepository is a mock implementation of persistence.StepRepository interface.
type MockStepRepository struct {
	mock.Mock
}

func (m *MockStepRepository) GetByID(ctx context.Context, id string) (*models.WorkflowStep, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowStep), args.Error(1)
}

func (m *MockStepRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowStep), args.Error(1)
}

func (m *MockStepRepository) Save(ctx context.Context, step *models.WorkflowStep) error {
	args := m.Called(ctx, step)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of persistence.ExecutionRepository interface.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowExecution), args.Error(1)
}

func (m *MockExecutionRepository) ListRecent(ctx context.Context, limit int) ([]*models.WorkflowExecution, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowExecution), args.Error(1)
}

func (m *MockExecutionRepository) ListByTicket(ctx context.Context, ticketID string) ([]*models.WorkflowExecution, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowExecution), args.Error(1)
}

func (m *MockExecutionRepository) CountByWorkflow(ctx context.Context, workflowID string) (int, error) {
	args := m.Called(ctx, workflowID)

	return args.Int(0), args.Error(1)
}

// MockTicketRepository is a mock implementation of persistence.TicketRepository interface.
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Save(ctx context.Context, ticket *models.Ticket) error {
	args := m.Called(ctx, ticket)

	return args.Error(0)
}

func (m *MockTicketRepository) ListByStatus(ctx context.Context, statuses ...string) ([]*models.Ticket, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Ticket), args.Error(1)
}

// MockNotificationRepository is a mock implementation of persistence.NotificationRepository interface.
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Notification), args.Error(1)
}

// MockTechnicianRepository is a mock implementation of persistence.TechnicianRepository interface.
type MockTechnicianRepository struct {
	mock.Mock
}

func (m *MockTechnicianRepository) ListAvailable(ctx context.Context) ([]*models.Technician, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) Save(ctx context.Context, technician *models.Technician) error {
	args := m.Called(ctx, technician)

	return args.Error(0)
}

// MockTemplateRepository is a mock implementation of persistence.TemplateRepository interface.
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) GetByID(ctx context.Context, id string) (*models.TicketTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TicketTemplate), args.Error(1)
}

func (m *MockTemplateRepository) ListActive(ctx context.Context) ([]*models.TicketTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TicketTemplate), args.Error(1)
}

func (m *MockTemplateRepository) Save(ctx context.Context, template *models.TicketTemplate) error {
	args := m.Called(ctx, template)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Workflows     *MockWorkflowRepository
	Steps         *MockStepRepository
	Executions    *MockExecutionRepository
	Tickets       *MockTicketRepository
	Notifications *MockNotificationRepository
	Technicians   *MockTechnicianRepository
	Templates     *MockTemplateRepository
}

// NewMockPersistence creates a new MockPersistence with all mock repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Workflows:     &MockWorkflowRepository{},
		Steps:         &MockStepRepository{},
		Executions:    &MockExecutionRepository{},
		Tickets:       &MockTicketRepository{},
		Notifications: &MockNotificationRepository{},
		Technicians:   &MockTechnicianRepository{},
		Templates:     &MockTemplateRepository{},
	}
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository { return m.Workflows }

func (m *MockPersistence) StepRepository() persistence.StepRepository { return m.Steps }

func (m *MockPersistence) ExecutionRepository() persistence.ExecutionRepository { return m.Executions }

func (m *MockPersistence) TicketRepository() persistence.TicketRepository { return m.Tickets }

func (m *MockPersistence) NotificationRepository() persistence.NotificationRepository {
	return m.Notifications
}

func (m *MockPersistence) TechnicianRepository() persistence.TechnicianRepository {
	return m.Technicians
}

func (m *MockPersistence) TemplateRepository() persistence.TemplateRepository { return m.Templates }

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
