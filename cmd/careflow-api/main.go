package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/careflow/pkg/cmd"
	"github.com/dukex/careflow/pkg/eventbus"
	"github.com/dukex/careflow/pkg/log"
	"github.com/dukex/careflow/pkg/services"
	"github.com/dukex/careflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "careflow-api",
		Usage:                 "Manage ticket workflows and receive ticket events",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres://... or file://<dir>)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "ticket-events",
				Usage:   "How ticket events reach the dispatcher (off, inline, bus)",
				Value:   string(services.TicketEventsInline),
				Sources: cli.EnvVars("TICKET_EVENTS_MODE"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel); empty disables publishing",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka broker addresses",
				Value:   []string{"localhost:9092"},
				Sources: cli.EnvVars("KAFKA_BROKERS"),
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
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("careflow-api")
			logger.InfoContext(ctx, "Initializing careflow API")

			mode, err := services.ParseTicketEventsMode(command.String("ticket-events"))
			if err != nil {
				return err
			}

			tracer, shutdown, err := cmd.NewTracer(ctx, command.Bool("otel"), "careflow-api")
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			var eventBus eventbus.EventBus

			if provider := command.String("event-bus"); provider != "" {
				bus, err := cmd.NewEventBus(provider, command.StringSlice("kafka-brokers"), "careflow-api", logger)
				if err != nil {
					return err
				}

				defer func() {
					if err := bus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()

				eventBus = bus
			} else if mode == services.TicketEventsBus {
				return fmt.Errorf("ticket events mode %q requires --event-bus", mode)
			}

			api := NewAPI(logger, persistence, eventBus, mode, command.Int("max-steps"), tracer)

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
