// Package queue consumes ticket events pushed on a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/careflow/pkg/receivers"
	redis "github.com/redis/go-redis/v9"
)

const (
	DefaultQueue       = "careflow:ticket-events"
	defaultPollTimeout = time.Second
	retryDelay         = time.Second
)

var (
	ErrQueueRequired  = errors.New("queue name is required")
	ErrInvalidMessage = errors.New("invalid ticket event message")
)

// Message is the JSON document producers push on the list.
type Message struct {
	Event    string         `json:"event"`
	TicketID string         `json:"ticket_id"`
	Context  map[string]any `json:"context,omitempty"`
}

// Receiver pops messages with BLPOP and dispatches them one at a time, in queue order.
// Delivery is at least once: a message whose dispatch fails is pushed back to the head
// of the list and retried after a delay. Dispatch only fails before any workflow runs,
// so a retry does not repeat executions. Invalid messages are dropped.
type Receiver struct {
	client      redis.UniversalClient
	queue       string
	dispatcher  receivers.Dispatcher
	logger      *slog.Logger
	pollTimeout time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewReceiver(client redis.UniversalClient, queue string, dispatcher receivers.Dispatcher, logger *slog.Logger) (*Receiver, error) {
	if queue == "" {
		return nil, ErrQueueRequired
	}

	return &Receiver{
		client:      client,
		queue:       queue,
		dispatcher:  dispatcher,
		logger:      logger.With("module", "queue_receiver", "queue", queue),
		pollTimeout: defaultPollTimeout,
		stopCh:      make(chan struct{}),
	}, nil
}

func (r *Receiver) Start(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := r.client.Ping(pingCtx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.InfoContext(ctx, "Starting queue receiver")

	r.wg.Add(1)

	go r.consume(ctx)

	return nil
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopCh:
			r.logger.InfoContext(ctx, "Queue receiver stopped")

			return
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Context cancelled, stopping queue receiver")

			return
		default:
			err := r.poll(ctx)
			if err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(retryDelay)
			}
		}
	}
}

func (r *Receiver) poll(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, r.pollTimeout, r.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	err = r.HandleMessage(ctx, result[1])
	if errors.Is(err, ErrInvalidMessage) {
		r.logger.WarnContext(ctx, "Dropping invalid message", "error", err)

		return nil
	}

	if err != nil {
		requeueErr := r.client.LPush(context.WithoutCancel(ctx), r.queue, result[1]).Err()
		if requeueErr != nil {
			r.logger.ErrorContext(ctx, "Failed to requeue message, dropping it", "error", requeueErr, "payload", result[1])
		}
	}

	return err
}

// HandleMessage decodes one queue payload and dispatches it.
func (r *Receiver) HandleMessage(ctx context.Context, payload string) error {
	msg, err := DecodeMessage(payload)
	if err != nil {
		return err
	}

	result, err := r.dispatcher.Dispatch(ctx, msg.Event, msg.TicketID, msg.Context)
	if err != nil {
		return fmt.Errorf("failed to dispatch %s for ticket %s: %w", msg.Event, msg.TicketID, err)
	}

	r.logger.InfoContext(ctx, "Dispatched queued ticket event",
		"event", msg.Event,
		"ticket_id", msg.TicketID,
		"matched", len(result.Matched),
	)

	return nil
}

// DecodeMessage parses a queue payload. Event and ticket_id are required.
func DecodeMessage(payload string) (*Message, error) {
	var msg Message

	err := json.Unmarshal([]byte(payload), &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if msg.Event == "" || msg.TicketID == "" {
		return nil, fmt.Errorf("%w: event and ticket_id are required", ErrInvalidMessage)
	}

	if msg.Context == nil {
		msg.Context = map[string]any{}
	}

	return &msg, nil
}

// Push encodes msg and appends it to the queue. Used by producers and the CLI.
func Push(ctx context.Context, client redis.UniversalClient, queue string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	err = client.RPush(ctx, queue, payload).Err()
	if err != nil {
		return fmt.Errorf("failed to push message to %s: %w", queue, err)
	}

	return nil
}

func (r *Receiver) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() {
		r.logger.InfoContext(ctx, "Stopping queue receiver")
		close(r.stopCh)
	})
	r.wg.Wait()

	return nil
}
