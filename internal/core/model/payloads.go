package model

// EventType is the tag of an identity provider event.
type EventType string

const (
	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
)

// Event is an inbound identity provider event. The set of implementations is closed:
// UserCreated, UserUpdated, UserDeleted and UnrecognizedEvent.
type Event interface {
	// EventType returns the tag the provider delivered the event with.
	EventType() EventType

	isEvent()
}

// UserCreated is delivered when an account is registered at the identity provider.
type UserCreated struct {
	// ClerkID is the identity provider id of the account.
	ClerkID string

	// Email is the first email address of the account.
	Email string

	// Username is the user handle
	Username string

	// FirstName is the user first name.
	FirstName string

	// LastName is the user last name.
	LastName string

	// Photo is the avatar URL of the user.
	Photo string
}

// UserUpdated is delivered when an account profile changes. Email is not synchronized on updates.
type UserUpdated struct {
	// ClerkID is the identity provider id of the account.
	ClerkID string

	// Username is the user handle
	Username string

	// FirstName is the user first name.
	FirstName string

	// LastName is the user last name.
	LastName string

	// Photo is the avatar URL of the user.
	Photo string
}

// UserDeleted is delivered when an account is removed at the identity provider.
type UserDeleted struct {
	// ClerkID is the identity provider id of the account.
	ClerkID string
}

// UnrecognizedEvent is any event this service does not act upon.
type UnrecognizedEvent struct {
	// Type is the tag the provider delivered.
	Type EventType

	// Data is the raw data object of the event.
	Data []byte
}

func (UserCreated) EventType() EventType         { return EventUserCreated }
func (UserUpdated) EventType() EventType         { return EventUserUpdated }
func (UserDeleted) EventType() EventType         { return EventUserDeleted }
func (e UnrecognizedEvent) EventType() EventType { return e.Type }

func (UserCreated) isEvent()       {}
func (UserUpdated) isEvent()       {}
func (UserDeleted) isEvent()       {}
func (UnrecognizedEvent) isEvent() {}

// UserChanges contains the mutable fields of a user. Every field is written, empty values included.
type UserChanges struct {
	// Username is the user handle
	Username string

	// FirstName is the user first name.
	FirstName string

	// LastName is the user last name.
	LastName string

	// Photo is the avatar URL of the user.
	Photo string
}

// SyncResult is the outcome of handling one identity provider event.
type SyncResult struct {
	// Type is the tag of the handled event.
	Type EventType

	// Handled is false when the event was not acted upon.
	Handled bool

	// User is the user record after the operation. For deletions it is the removed record.
	User *User
}
