package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/careflow/pkg/receivers/queue"
	cli "github.com/urfave/cli/v3"
)

func main() {
	err := newCommand().Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "careflow",
		Usage:                 "Run and inspect ticket workflows from the terminal",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL (postgres://... or file://<dir>)",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "trigger",
				Aliases:   []string{"t"},
				Usage:     "Run a workflow manually against a ticket",
				ArgsUsage: "<workflow-id> <ticket-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "by", Usage: "Who triggered the run", Value: "cli"},
					&cli.StringSliceFlag{Name: "data", Usage: "Trigger data as key=value, repeatable"},
				},
				Action: TriggerWorkflow,
			},
			{
				Name:      "dispatch",
				Aliases:   []string{"d"},
				Usage:     "Dispatch a ticket event to every matching workflow",
				ArgsUsage: "<event> <ticket-id>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "context", Usage: "Event context as key=value, repeatable"},
				},
				Action: DispatchEvent,
			},
			{
				Name:    "executions",
				Aliases: []string{"e"},
				Usage:   "Inspect workflow executions",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List the latest executions",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "ticket", Usage: "Only executions of this ticket"},
						},
						Action: ListExecutions,
					},
					{
						Name:      "show",
						Usage:     "Show one execution",
						ArgsUsage: "<execution-id>",
						Action:    ShowExecution,
					},
				},
			},
			{
				Name:      "import",
				Aliases:   []string{"i"},
				Usage:     "Create workflows from a YAML definition file",
				ArgsUsage: "<file>",
				Action:    ImportWorkflows,
			},
			{
				Name:      "push",
				Usage:     "Push a ticket event onto the redis queue",
				ArgsUsage: "<event> <ticket-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "redis-url",
						Usage:    "Redis URL of the ticket event queue",
						Required: true,
						Sources:  cli.EnvVars("REDIS_URL"),
					},
					&cli.StringFlag{
						Name:    "redis-queue",
						Usage:   "Redis list holding ticket events",
						Value:   queue.DefaultQueue,
						Sources: cli.EnvVars("REDIS_QUEUE"),
					},
					&cli.StringSliceFlag{Name: "context", Usage: "Event context as key=value, repeatable"},
				},
				Action: PushEvent,
			},
		},
	}
}
