package queue_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/careflow/pkg/mocks"
	"github.com/dukex/careflow/pkg/receivers/queue"
	"github.com/dukex/careflow/pkg/workflow"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestNewReceiver_RequiresQueue(t *testing.T) {
	_, err := queue.NewReceiver(nil, "", &mocks.MockDispatcher{}, newLogger())

	require.ErrorIs(t, err, queue.ErrQueueRequired)
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    *queue.Message
		wantErr bool
	}{
		{
			name:    "full message",
			payload: `{"event":"ticket_created","ticket_id":"t-1","context":{"source":"pager"}}`,
			want:    &queue.Message{Event: "ticket_created", TicketID: "t-1", Context: map[string]any{"source": "pager"}},
		},
		{
			name:    "context defaults to empty",
			payload: `{"event":"manual","ticket_id":"t-2"}`,
			want:    &queue.Message{Event: "manual", TicketID: "t-2", Context: map[string]any{}},
		},
		{name: "not json", payload: "ticket t-1 created", wantErr: true},
		{name: "missing event", payload: `{"ticket_id":"t-1"}`, wantErr: true},
		{name: "missing ticket", payload: `{"event":"ticket_created"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := queue.DecodeMessage(tt.payload)

			if tt.wantErr {
				require.ErrorIs(t, err, queue.ErrInvalidMessage)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches decoded event", func(t *testing.T) {
		dispatcher := &mocks.MockDispatcher{}
		dispatcher.On("Dispatch", mock.Anything, "ticket_updated", "t-9", map[string]any{"by": "nurse"}).
			Return(&workflow.DispatchResult{Matched: []string{"wf-1"}}, nil)

		receiver, err := queue.NewReceiver(nil, queue.DefaultQueue, dispatcher, newLogger())
		require.NoError(t, err)

		err = receiver.HandleMessage(ctx, `{"event":"ticket_updated","ticket_id":"t-9","context":{"by":"nurse"}}`)

		require.NoError(t, err)
		dispatcher.AssertExpectations(t)
	})

	t.Run("dispatch error is returned", func(t *testing.T) {
		dispatcher := &mocks.MockDispatcher{}
		dispatcher.On("Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("database unavailable"))

		receiver, err := queue.NewReceiver(nil, queue.DefaultQueue, dispatcher, newLogger())
		require.NoError(t, err)

		err = receiver.HandleMessage(ctx, `{"event":"manual","ticket_id":"t-1"}`)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "database unavailable")
	})

	t.Run("invalid message is not dispatched", func(t *testing.T) {
		dispatcher := &mocks.MockDispatcher{}

		receiver, err := queue.NewReceiver(nil, queue.DefaultQueue, dispatcher, newLogger())
		require.NoError(t, err)

		err = receiver.HandleMessage(ctx, `{}`)

		require.ErrorIs(t, err, queue.ErrInvalidMessage)
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReceiver_StopIsIdempotent(t *testing.T) {
	receiver, err := queue.NewReceiver(nil, queue.DefaultQueue, &mocks.MockDispatcher{}, newLogger())
	require.NoError(t, err)

	require.NoError(t, receiver.Stop(context.Background()))
	assert.NotPanics(t, func() { _ = receiver.Stop(context.Background()) })
}

func setupRedis(t *testing.T) redis.UniversalClient {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestReceiver_ConsumesQueueInOrder(t *testing.T) {
	client := setupRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := make(chan string, 3)
	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, "ticket_created", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { seen <- args.String(2) }).
		Return(&workflow.DispatchResult{}, nil)

	receiver, err := queue.NewReceiver(client, "careflow:test", dispatcher, newLogger())
	require.NoError(t, err)
	require.NoError(t, receiver.Start(ctx))

	defer func() { _ = receiver.Stop(ctx) }()

	require.NoError(t, client.RPush(ctx, "careflow:test", "garbage").Err())

	for _, ticketID := range []string{"t-1", "t-2", "t-3"} {
		require.NoError(t, queue.Push(ctx, client, "careflow:test", queue.Message{Event: "ticket_created", TicketID: ticketID}))
	}

	var got []string

	for range 3 {
		select {
		case ticketID := <-seen:
			got = append(got, ticketID)
		case <-time.After(10 * time.Second):
			t.Fatal("queued events were not dispatched")
		}
	}

	assert.Equal(t, []string{"t-1", "t-2", "t-3"}, got)
}

func TestReceiver_RequeuesOnDispatchError(t *testing.T) {
	client := setupRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan string, 1)
	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, "ticket_updated", "t-7", mock.Anything).
		Return(nil, errors.New("database unavailable")).Once()
	dispatcher.On("Dispatch", mock.Anything, "ticket_updated", "t-7", mock.Anything).
		Run(func(args mock.Arguments) { delivered <- args.String(2) }).
		Return(&workflow.DispatchResult{}, nil).Once()

	receiver, err := queue.NewReceiver(client, "careflow:retry", dispatcher, newLogger())
	require.NoError(t, err)
	require.NoError(t, receiver.Start(ctx))

	defer func() { _ = receiver.Stop(ctx) }()

	require.NoError(t, queue.Push(ctx, client, "careflow:retry", queue.Message{Event: "ticket_updated", TicketID: "t-7"}))

	select {
	case ticketID := <-delivered:
		assert.Equal(t, "t-7", ticketID)
	case <-time.After(15 * time.Second):
		t.Fatal("failed dispatch was not retried")
	}

	dispatcher.AssertNumberOfCalls(t, "Dispatch", 2)
}
