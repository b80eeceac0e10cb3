package ports

import (
	"context"

	"github.com/rbroggi/clerksync/internal/core/model"
)

// UserEventHandler handles change events of the user store.
type UserEventHandler interface {
	// Handle will receive a user-record change and handle it.
	Handle(ctx context.Context, userEvent model.UserEvent) error
}
