package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/careflow/pkg/cmd"
	"github.com/dukex/careflow/pkg/config"
	"github.com/dukex/careflow/pkg/log"
	"github.com/dukex/careflow/pkg/persistence"
	"github.com/dukex/careflow/pkg/receivers/queue"
	"github.com/dukex/careflow/pkg/services"
	"github.com/dukex/careflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var (
	ErrMissingArguments = errors.New("missing arguments")
	ErrInvalidPair      = errors.New("expected key=value")
	ErrDatabaseRequired = errors.New("--database-url or DATABASE_URL is required")
)

type session struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *workflow.Engine
}

func openSession(ctx context.Context, command *cli.Command) (*session, error) {
	if command.String("database-url") == "" {
		return nil, ErrDatabaseRequired
	}

	logger := log.Setup(command.String("log-level"), "text").With("module", "careflow-cli")

	p, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, err
	}

	return &session{
		logger:      logger,
		persistence: p,
		engine:      workflow.NewEngine(p, logger),
	}, nil
}

func (s *session) close(ctx context.Context) {
	err := s.persistence.Close(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}

func args(command *cli.Command, names ...string) ([]string, error) {
	if command.Args().Len() < len(names) {
		return nil, fmt.Errorf("%w: expected %s", ErrMissingArguments, strings.Join(names, " "))
	}

	return command.Args().Slice()[:len(names)], nil
}

// parsePairs turns key=value flags into a map. Numbers and booleans keep their JSON type.
func parsePairs(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPair, pair)
		}

		values[key] = parseValue(raw)
	}

	return values, nil
}

func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}

	return raw
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}

func TriggerWorkflow(ctx context.Context, command *cli.Command) error {
	positional, err := args(command, "<workflow-id>", "<ticket-id>")
	if err != nil {
		return err
	}

	data, err := parsePairs(command.StringSlice("data"))
	if err != nil {
		return err
	}

	s, err := openSession(ctx, command)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	execution, err := services.NewWorkflow(s.persistence, s.engine).Trigger(ctx, positional[0], services.TriggerRequest{
		TicketID:    positional[1],
		TriggeredBy: command.String("by"),
		TriggerData: data,
	})
	if execution != nil {
		if printErr := printJSON(command.Root().Writer, execution); printErr != nil {
			return printErr
		}
	}

	return err
}

func DispatchEvent(ctx context.Context, command *cli.Command) error {
	positional, err := args(command, "<event>", "<ticket-id>")
	if err != nil {
		return err
	}

	eventContext, err := parsePairs(command.StringSlice("context"))
	if err != nil {
		return err
	}

	s, err := openSession(ctx, command)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	dispatcher := workflow.NewDispatcher(s.persistence, s.engine, s.logger, nil)

	result, err := services.NewTicketEvents(services.TicketEventsInline, dispatcher, nil, s.logger).
		Submit(ctx, positional[0], positional[1], eventContext)
	if err != nil {
		return err
	}

	failed := make(map[string]string, len(result.Errors))
	for workflowID, runErr := range result.Errors {
		failed[workflowID] = runErr.Error()
	}

	return printJSON(command.Root().Writer, map[string]any{
		"matched":    result.Matched,
		"executions": result.Executions,
		"errors":     failed,
	})
}

func ListExecutions(ctx context.Context, command *cli.Command) error {
	s, err := openSession(ctx, command)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	executions := services.NewExecution(s.persistence)

	var summaries []*services.ExecutionSummary
	if ticketID := command.String("ticket"); ticketID != "" {
		summaries, err = executions.ListByTicket(ctx, ticketID)
	} else {
		summaries, err = executions.ListRecent(ctx)
	}

	if err != nil {
		return err
	}

	return printJSON(command.Root().Writer, summaries)
}

func ShowExecution(ctx context.Context, command *cli.Command) error {
	positional, err := args(command, "<execution-id>")
	if err != nil {
		return err
	}

	s, err := openSession(ctx, command)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	summary, err := services.NewExecution(s.persistence).FetchByID(ctx, positional[0])
	if err != nil {
		return err
	}

	return printJSON(command.Root().Writer, summary)
}

func PushEvent(ctx context.Context, command *cli.Command) error {
	positional, err := args(command, "<event>", "<ticket-id>")
	if err != nil {
		return err
	}

	eventContext, err := parsePairs(command.StringSlice("context"))
	if err != nil {
		return err
	}

	client, err := cmd.NewRedisClient(command.String("redis-url"))
	if err != nil {
		return err
	}

	defer func() { _ = client.Close() }()

	err = queue.Push(ctx, client, command.String("redis-queue"), queue.Message{
		Event:    positional[0],
		TicketID: positional[1],
		Context:  eventContext,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(command.Root().Writer, "queued %s for ticket %s\n", positional[0], positional[1])

	return err
}

// ImportWorkflows creates the workflows of a YAML definition file. Steps are added in
// file order, then linked by name.
func ImportWorkflows(ctx context.Context, command *cli.Command) error {
	positional, err := args(command, "<file>")
	if err != nil {
		return err
	}

	file, err := config.LoadWorkflowFile(positional[0])
	if err != nil {
		return err
	}

	s, err := openSession(ctx, command)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	workflows := services.NewWorkflow(s.persistence, s.engine)
	imported := make([]string, 0, len(file.Workflows))

	for _, definition := range file.Workflows {
		id, err := importWorkflow(ctx, workflows, file.CreatedBy, definition)
		if err != nil {
			return fmt.Errorf("failed to import workflow %q: %w", definition.Name, err)
		}

		s.logger.InfoContext(ctx, "Imported workflow", "workflow_id", id, "name", definition.Name)
		imported = append(imported, id)
	}

	return printJSON(command.Root().Writer, map[string]any{"imported": imported})
}

func importWorkflow(ctx context.Context, workflows *services.Workflow, createdBy string, definition config.WorkflowDefinition) (string, error) {
	created, err := workflows.Create(ctx, services.CreateWorkflowRequest{
		Name:        definition.Name,
		Description: definition.Description,
		Category:    definition.Category,
		CreatedBy:   createdBy,
	})
	if err != nil {
		return "", err
	}

	stepIDs := make(map[string]string, len(definition.Steps))

	for _, step := range definition.Steps {
		added, err := workflows.AddStep(ctx, created.ID, services.AddStepRequest{
			Name:        step.Name,
			Description: step.Description,
			StepType:    step.Type,
			Config:      step.Config,
		})
		if err != nil {
			return "", err
		}

		stepIDs[step.Name] = added.ID
	}

	for _, step := range definition.Steps {
		if step.Next == "" {
			continue
		}

		next := stepIDs[step.Next]

		_, err := workflows.LinkStep(ctx, created.ID, stepIDs[step.Name], &next)
		if err != nil {
			return "", err
		}
	}

	return created.ID, nil
}
