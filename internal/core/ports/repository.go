package ports

import (
	"context"

	"github.com/rbroggi/clerksync/internal/core/model"
)

// Repository is the interface for the persistence layer.
type Repository interface {
	// SaveUser durably saves a new user. The store assigns user.ID, user.CreatedAt and user.UpdatedAt.
	SaveUser(ctx context.Context, user *model.User) error

	// UpdateUser overwrites the mutable fields of the user identified by clerkID and returns the
	// resulting record. It returns model.ErrNotFound if no live user carries clerkID.
	UpdateUser(ctx context.Context, clerkID string, changes model.UserChanges) (*model.User, error)

	// GetUser returns the live user identified by clerkID or model.ErrNotFound.
	GetUser(ctx context.Context, clerkID string) (*model.User, error)

	// DeleteUser removes the user matching the query parameters and returns the removed record.
	// It returns model.ErrNotFound if no live user carries the id.
	DeleteUser(ctx context.Context, query DeleteUserQuery) (*model.User, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}

// DeleteUserQuery gathers the parameters of a deletion.
type DeleteUserQuery struct {
	// ClerkID is the identity provider id of the user to be deleted
	ClerkID string

	// HardDelete will hard-delete the user, otherwise it's kept in soft-delete state for auditing
	HardDelete bool
}
