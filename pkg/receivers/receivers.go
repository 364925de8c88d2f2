// Package receivers feeds ticket events from outside the API into the trigger dispatcher.
package receivers

import (
	"context"

	"github.com/dukex/careflow/pkg/workflow"
)

// Dispatcher is the consumer side of the trigger dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, event, ticketID string, eventContext map[string]any) (*workflow.DispatchResult, error)
}

// Receiver is a long running event source.
type Receiver interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
