// Package main provides the careflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/careflow/pkg/eventbus"
	"github.com/dukex/careflow/pkg/metrics"
	"github.com/dukex/careflow/pkg/persistence"
	"github.com/dukex/careflow/pkg/services"
	"github.com/dukex/careflow/pkg/web"
	"github.com/dukex/careflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger           *slog.Logger
	persistence      persistence.Persistence
	eventBus         eventbus.EventBus
	ticketEventsMode services.TicketEventsMode
	maxSteps         int
	tracer           trace.Tracer
}

// NewAPI wires the API. eventBus may be nil unless mode is bus; when present it also
// receives the execution lifecycle events.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	mode services.TicketEventsMode,
	maxSteps int,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:           logger,
		persistence:      persistence,
		eventBus:         eventBus,
		ticketEventsMode: mode,
		maxSteps:         maxSteps,
		tracer:           tracer,
	}
}

func (a *API) App() *fiber.App {
	options := []workflow.Option{workflow.WithMaxSteps(a.maxSteps)}
	if a.tracer != nil {
		options = append(options, workflow.WithTracer(a.tracer))
	}

	if a.eventBus != nil {
		options = append(options, workflow.WithPublisher(a.eventBus))
	}

	engine := workflow.NewEngine(a.persistence, a.logger, options...)
	dispatcher := workflow.NewDispatcher(a.persistence, engine, a.logger, a.tracer)

	var publisher eventbus.EventPublisher
	if a.eventBus != nil {
		publisher = a.eventBus
	}

	ticketEvents := services.NewTicketEvents(a.ticketEventsMode, dispatcher, publisher, a.logger)

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(a.persistence, engine),
		services.NewTemplate(a.persistence, engine, ticketEvents, a.logger),
		services.NewExecution(a.persistence),
		ticketEvents,
	)

	metrics.Init()

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("careflow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
