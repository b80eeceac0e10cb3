package ports

import (
	"context"

	"github.com/rbroggi/clerksync/internal/core/model"
)

// Sender is the port for publishing user-record changes to downstream consumers.
type Sender interface {
	// Send publishes the change. It returns once the broker acknowledged it.
	Send(ctx context.Context, event model.UserEvent) error
}
