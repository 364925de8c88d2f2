package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/careflow/pkg/cmd"
	"github.com/dukex/careflow/pkg/eventbus"
	"github.com/dukex/careflow/pkg/log"
	"github.com/dukex/careflow/pkg/receivers"
	"github.com/dukex/careflow/pkg/receivers/queue"
	"github.com/dukex/careflow/pkg/receivers/schedule"
	"github.com/dukex/careflow/pkg/workflow"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "careflow-dispatcher",
		Usage:                 "Match ticket events against workflow triggers and run the matching workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Sources: cli.EnvVars("DISPATCHER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres://... or file://<dir>)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel); empty disables the bus consumer",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka broker addresses",
				Value:   []string{"localhost:9092"},
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL of the ticket event queue; empty disables the queue receiver",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-queue",
				Usage:   "Redis list holding ticket events",
				Value:   queue.DefaultQueue,
				Sources: cli.EnvVars("REDIS_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "sweep-cron",
				Usage:   "Cron expression of the scheduled_check sweep; empty disables it",
				Value:   schedule.DefaultSpec,
				Sources: cli.EnvVars("SWEEP_CRON"),
			},
			&cli.IntFlag{
				Name:    "max-steps",
				Usage:   "Maximum number of steps a single execution may visit",
				Value:   workflow.DefaultMaxSteps,
				Sources: cli.EnvVars("MAX_STEPS"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces with OTLP/HTTP (configured by OTEL_EXPORTER_OTLP_*)",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcherID := command.String("dispatcher-id")
	if dispatcherID == "" {
		dispatcherID = "dispatcher-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("careflow-dispatcher").With("dispatcher_id", dispatcherID)
	logger.InfoContext(ctx, "Initializing careflow dispatcher")

	tracer, shutdown, err := cmd.NewTracer(ctx, command.Bool("otel"), "careflow-dispatcher")
	if err != nil {
		return err
	}

	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}()

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	options := []workflow.Option{workflow.WithMaxSteps(command.Int("max-steps")), workflow.WithTracer(tracer)}

	var subscriber eventbus.EventSubscriber

	if provider := command.String("event-bus"); provider != "" {
		bus, err := cmd.NewEventBus(provider, command.StringSlice("kafka-brokers"), "careflow-dispatcher", logger)
		if err != nil {
			return err
		}

		defer func() {
			if err := bus.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
			}
		}()

		subscriber = bus
		options = append(options, workflow.WithPublisher(bus))
	}

	engine := workflow.NewEngine(persistence, logger, options...)
	dispatcher := workflow.NewDispatcher(persistence, engine, logger, tracer)

	var sources []receivers.Receiver

	if redisURL := command.String("redis-url"); redisURL != "" {
		client, err := cmd.NewRedisClient(redisURL)
		if err != nil {
			return err
		}

		defer func() {
			if err := client.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close redis client", "error", err)
			}
		}()

		receiver, err := queue.NewReceiver(client, command.String("redis-queue"), dispatcher, logger)
		if err != nil {
			return err
		}

		sources = append(sources, receiver)
	}

	if spec := command.String("sweep-cron"); spec != "" {
		receiver, err := schedule.NewReceiver(spec, persistence.TicketRepository(), dispatcher, logger)
		if err != nil {
			return err
		}

		sources = append(sources, receiver)
	}

	if subscriber == nil && len(sources) == 0 {
		return ErrNothingToConsume
	}

	return NewDispatcherManager(dispatcherID, subscriber, dispatcher, logger, sources...).Start(ctx)
}
