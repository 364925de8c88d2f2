//go:build integration

package kafka_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/careflow/pkg/channels/kafka"
	"github.com/dukex/careflow/pkg/eventbus"
	"github.com/dukex/careflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func setupBrokers(t *testing.T) []string {
	t.Helper()

	ctx := context.Background()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, container.Terminate(context.Background()))
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	return brokers
}

func TestCreateChannel_DeliversTicketEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), setupBrokers(t), "careflow-test")
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(logger, pub, sub)
	defer func() { _ = bus.Close() }()

	received := make(chan *events.TicketEvent, 1)

	require.NoError(t, bus.Handle(events.TicketEventType, func(_ context.Context, event any) error {
		received <- event.(*events.TicketEvent)

		return nil
	}))

	sent := events.NewTicketEvent("ticket_created", "ticket-1", map[string]any{"source": "kafka"})
	require.NoError(t, bus.Publish(ctx, "ticket-1", sent))
	require.NoError(t, bus.Subscribe(ctx))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "ticket-1", got.TicketID)
		assert.Equal(t, "kafka", got.Context["source"])
	case <-time.After(60 * time.Second):
		t.Fatal("ticket event was not delivered through kafka")
	}
}

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	_, _, err := kafka.CreateChannel(watermill.NopLogger{}, nil, "careflow-test")
	require.ErrorIs(t, err, kafka.ErrNoBrokers)
}
