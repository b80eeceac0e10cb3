package model

import "errors"

var (
	// ErrNotFound is returned when an entity is required to exist and does not.
	ErrNotFound = errors.New("entity was not found")

	// ErrNoEmailAddress is returned when a created user carries no email address.
	ErrNoEmailAddress = errors.New("user has no email address")

	// ErrMissingClerkID is returned when an event does not reference an external identifier.
	ErrMissingClerkID = errors.New("event does not carry a user id")
)
