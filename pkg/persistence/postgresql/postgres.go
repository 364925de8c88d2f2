// Package postgresql provides PostgreSQL persistence implementation for workflows, executions and tickets.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/careflow/pkg/persistence"
	"github.com/dukex/careflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	workflowRepo     *WorkflowRepository
	stepRepo         *StepRepository
	executionRepo    *ExecutionRepository
	ticketRepo       *TicketRepository
	notificationRepo *NotificationRepository
	technicianRepo   *TechnicianRepository
	templateRepo     *TemplateRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	stepRepo := NewStepRepository(database, logger)

	postgres := &Persistence{
		db:               database,
		logger:           logger,
		workflowRepo:     NewWorkflowRepository(database, logger, stepRepo),
		stepRepo:         stepRepo,
		executionRepo:    NewExecutionRepository(database, logger),
		ticketRepo:       NewTicketRepository(database, logger),
		notificationRepo: NewNotificationRepository(database, logger),
		technicianRepo:   NewTechnicianRepository(database, logger),
		templateRepo:     NewTemplateRepository(database, logger),
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository { return p.workflowRepo }

func (p *Persistence) StepRepository() persistence.StepRepository { return p.stepRepo }

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository { return p.executionRepo }

func (p *Persistence) TicketRepository() persistence.TicketRepository { return p.ticketRepo }

func (p *Persistence) NotificationRepository() persistence.NotificationRepository {
	return p.notificationRepo
}

func (p *Persistence) TechnicianRepository() persistence.TechnicianRepository {
	return p.technicianRepo
}

func (p *Persistence) TemplateRepository() persistence.TemplateRepository { return p.templateRepo }

type scanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
