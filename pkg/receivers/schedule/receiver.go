// Package schedule periodically sweeps unresolved tickets through the trigger dispatcher
// so that time based workflows (time_elapsed conditions) get a chance to fire.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
	"github.com/dukex/careflow/pkg/receivers"
	"github.com/robfig/cron/v3"
)

// DefaultSpec sweeps every fifteen minutes.
const DefaultSpec = "*/15 * * * *"

var ErrSpecRequired = errors.New("cron expression is required")

// SweepStatuses are the ticket statuses visited by a sweep.
var SweepStatuses = []string{models.TicketStatusOpen, models.TicketStatusInProgress}

type Receiver struct {
	spec       string
	tickets    persistence.TicketRepository
	dispatcher receivers.Dispatcher
	logger     *slog.Logger
	now        func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewReceiver validates spec (standard five field cron syntax, descriptors like @hourly allowed).
func NewReceiver(spec string, tickets persistence.TicketRepository, dispatcher receivers.Dispatcher, logger *slog.Logger) (*Receiver, error) {
	if spec == "" {
		return nil, ErrSpecRequired
	}

	_, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression '%s': %w", spec, err)
	}

	return &Receiver{
		spec:       spec,
		tickets:    tickets,
		dispatcher: dispatcher,
		logger:     logger.With("module", "schedule_receiver", "cron", spec),
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctx, r.cancel = context.WithCancel(ctx)

	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := r.cron.AddFunc(r.spec, func() {
		_, err := r.Sweep(r.ctx)
		if err != nil {
			r.logger.ErrorContext(r.ctx, "Scheduled sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "Schedule receiver started")

	return nil
}

// Sweep dispatches a scheduled_check event for every open or in progress ticket and
// returns how many tickets were dispatched. A failing ticket is logged and skipped.
func (r *Receiver) Sweep(ctx context.Context) (int, error) {
	tickets, err := r.tickets.ListByStatus(ctx, SweepStatuses...)
	if err != nil {
		return 0, fmt.Errorf("failed to list tickets to sweep: %w", err)
	}

	sweptAt := r.now().Format(time.RFC3339)
	dispatched := 0

	for _, ticket := range tickets {
		if ctx.Err() != nil {
			return dispatched, ctx.Err()
		}

		eventContext := map[string]any{
			"trigger_type": models.EventScheduledCheck,
			"swept_at":     sweptAt,
		}

		_, err := r.dispatcher.Dispatch(ctx, models.EventScheduledCheck, ticket.ID, eventContext)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to dispatch scheduled check", "ticket_id", ticket.ID, "error", err)

			continue
		}

		dispatched++
	}

	r.logger.InfoContext(ctx, "Swept tickets", "tickets", len(tickets), "dispatched", dispatched)

	return dispatched, nil
}

func (r *Receiver) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.InfoContext(ctx, "Stopping schedule receiver")

	if r.cancel != nil {
		r.cancel()
	}

	if r.cron != nil {
		<-r.cron.Stop().Done()
	}

	return nil
}
