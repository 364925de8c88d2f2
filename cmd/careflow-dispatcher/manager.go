package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/careflow/pkg/eventbus"
	"github.com/dukex/careflow/pkg/events"
	"github.com/dukex/careflow/pkg/receivers"
)

var (
	ErrUnexpectedEvent  = errors.New("unexpected event payload")
	ErrNothingToConsume = errors.New("nothing to consume: configure an event bus, a redis queue or a sweep")
)

// DispatcherManager feeds ticket events from the bus and the configured receivers into the
// trigger dispatcher until its context ends.
type DispatcherManager struct {
	id         string
	eventBus   eventbus.EventSubscriber
	dispatcher receivers.Dispatcher
	receivers  []receivers.Receiver
	logger     *slog.Logger
}

func NewDispatcherManager(
	id string,
	eventBus eventbus.EventSubscriber,
	dispatcher receivers.Dispatcher,
	logger *slog.Logger,
	sources ...receivers.Receiver,
) *DispatcherManager {
	return &DispatcherManager{
		id:         id,
		eventBus:   eventBus,
		dispatcher: dispatcher,
		receivers:  sources,
		logger:     logger.With("module", "careflow-dispatcher", "dispatcher_id", id),
	}
}

// Start subscribes to ticket events, starts the receivers and blocks until ctx is done.
func (dm *DispatcherManager) Start(ctx context.Context) error {
	dm.logger.InfoContext(ctx, "Starting dispatcher manager", "receivers", len(dm.receivers))

	if dm.eventBus != nil {
		err := dm.eventBus.Handle(events.TicketEventType, dm.handleTicketEvent)
		if err != nil {
			return fmt.Errorf("failed to register ticket event handler: %w", err)
		}

		err = dm.eventBus.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("failed to subscribe to ticket events: %w", err)
		}
	}

	started := make([]receivers.Receiver, 0, len(dm.receivers))

	for _, receiver := range dm.receivers {
		err := receiver.Start(ctx)
		if err != nil {
			dm.stop(context.WithoutCancel(ctx), started)

			return fmt.Errorf("failed to start receiver: %w", err)
		}

		started = append(started, receiver)
	}

	<-ctx.Done()

	dm.logger.InfoContext(ctx, "Shutting down dispatcher manager")
	dm.stop(context.WithoutCancel(ctx), started)
	dm.logger.InfoContext(ctx, "Dispatcher manager stopped")

	return nil
}

func (dm *DispatcherManager) stop(ctx context.Context, started []receivers.Receiver) {
	for _, receiver := range started {
		err := receiver.Stop(ctx)
		if err != nil {
			dm.logger.ErrorContext(ctx, "Failed to stop receiver", "error", err)
		}
	}
}

// handleTicketEvent dispatches one bus event. Failed workflow runs are already recorded, so
// only a failing dispatch returns an error and gets the message redelivered.
func (dm *DispatcherManager) handleTicketEvent(ctx context.Context, event any) error {
	ticketEvent, ok := event.(*events.TicketEvent)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedEvent, event)
	}

	logger := dm.logger.With("event", ticketEvent.Event, "ticket_id", ticketEvent.TicketID, "event_id", ticketEvent.ID)

	result, err := dm.dispatcher.Dispatch(ctx, ticketEvent.Event, ticketEvent.TicketID, ticketEvent.Context)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to dispatch ticket event", "error", err)

		return err
	}

	logger.DebugContext(ctx, "Ticket event dispatched", "matched", len(result.Matched), "failed", len(result.Errors))

	return nil
}
