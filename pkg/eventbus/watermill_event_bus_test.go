package eventbus_test

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/careflow/pkg/channels/gochannel"
	"github.com/dukex/careflow/pkg/eventbus"
	"github.com/dukex/careflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	pub, sub := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	bus := eventbus.NewWatermillEventBus(logger, pub, sub)

	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_DeliversTicketEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)
	received := make(chan *events.TicketEvent, 1)

	require.NoError(t, bus.Handle(events.TicketEventType, func(_ context.Context, event any) error {
		received <- event.(*events.TicketEvent)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.NewTicketEvent("ticket_created", "ticket-1", map[string]any{"source": "api"})
	require.NoError(t, bus.Publish(ctx, "ticket-1", sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "ticket_created", got.Event)
		assert.Equal(t, "ticket-1", got.TicketID)
		assert.Equal(t, "api", got.Context["source"])
	case <-time.After(5 * time.Second):
		t.Fatal("ticket event was not delivered")
	}
}

func TestWatermillEventBus_RedeliversAfterHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	var calls atomic.Int32

	done := make(chan struct{})

	require.NoError(t, bus.Handle(events.TicketEventType, func(context.Context, any) error {
		if calls.Add(1) == 1 {
			return assert.AnError
		}

		close(done)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))
	require.NoError(t, bus.Publish(ctx, "ticket-1", events.NewTicketEvent("manual", "ticket-1", nil)))

	select {
	case <-done:
		assert.Equal(t, int32(2), calls.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("message was not redelivered")
	}
}

func TestWatermillEventBus_AcksUndecodableAndUnhandledMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	pub, sub := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	bus := eventbus.NewWatermillEventBus(logger, pub, sub)

	defer func() { _ = bus.Close() }()

	received := make(chan string, 1)

	require.NoError(t, bus.Handle(events.TicketEventType, func(_ context.Context, event any) error {
		received <- event.(*events.TicketEvent).TicketID

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	garbage := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	garbage.Metadata.Set(events.EventTypeMetadataKey, string(events.TicketEventType))
	require.NoError(t, pub.Publish(events.Topic, garbage))

	completed := &events.WorkflowExecutionCompleted{BaseEvent: events.NewBaseEvent(events.WorkflowExecutionCompletedEvent)}
	require.NoError(t, bus.Publish(ctx, "ticket-0", completed))

	require.NoError(t, bus.Publish(ctx, "ticket-2", events.NewTicketEvent("manual", "ticket-2", nil)))

	select {
	case got := <-received:
		assert.Equal(t, "ticket-2", got)
	case <-time.After(5 * time.Second):
		t.Fatal("bus stopped delivering after a poison message")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

var _ eventbus.EventBus = (*eventbus.WatermillEventBus)(nil)
