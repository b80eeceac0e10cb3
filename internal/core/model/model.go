package model

import (
	"time"
)

// User represents a user record synchronized from the identity provider.
type User struct {
	// ID is the internal identifier assigned by the store on creation.
	ID string `json:"id"`

	// ClerkID is the identity-provider-assigned identifier. Unique and immutable after creation.
	ClerkID string `json:"clerk_id"`

	// Email is the first email address the user registered with.
	Email string `json:"email"`

	// Username is the user handle
	Username string `json:"username"`

	// FirstName is the user first name.
	FirstName string `json:"first_name"`

	// LastName is the user last name.
	LastName string `json:"last_name"`

	// Photo is the avatar URL of the user.
	Photo string `json:"photo"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time at which the user was last updated
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	// DeletedAt is the time at which the user was deleted. Zero-valued if user not deleted
	DeletedAt time.Time `json:"deleted_at,omitempty"`
}

// UserEvent collects a user change. It can represent creation, update and deletion of a user.
type UserEvent struct {
	// ID is the event id.
	ID string `json:"id"`

	// Before is the user state before the event. It will be nil in case of user-creations.
	Before *User `json:"before"`

	// After is the user state after the event. It will be nil in case of deletions.
	After *User `json:"after"`
}

// Type classifies the change carried by the event.
func (e UserEvent) Type() EventType {
	switch {
	case e.Before == nil && e.After != nil:
		return EventUserCreated
	case e.Before != nil && e.After == nil:
		return EventUserDeleted
	default:
		return EventUserUpdated
	}
}
