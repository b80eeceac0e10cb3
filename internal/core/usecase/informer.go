package usecase

import (
	"context"
	"fmt"

	"github.com/rbroggi/clerksync/internal/core/model"
	"github.com/rbroggi/clerksync/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// NewInformer builds a new informer.
func NewInformer(sender ports.Sender) *Informer {
	return &Informer{sender: sender}
}

// Informer adapts CDC events of the user store to a public-facing event. It publicly 'informs' about synced users.
type Informer struct {
	sender ports.Sender
}

// Handle normalizes the change and sends it, unless it carries nothing consumers care about.
func (i *Informer) Handle(ctx context.Context, userEvent model.UserEvent) error {

	// 1. rows that were already soft-deleted are dead to consumers.
	if userEvent.Before != nil && !userEvent.Before.DeletedAt.IsZero() {
		log.WithField("event_id", userEvent.ID).Debug("ignoring change on soft-deleted user")
		return nil
	}

	// 2. soft vs hard deletions are internal to the store. Both are published as deletions.
	if userEvent.Before != nil && userEvent.After != nil && !userEvent.After.DeletedAt.IsZero() {
		userEvent.After = nil
	}

	// this happens when an update event re-delivers an unchanged profile
	if sameProfile(userEvent.Before, userEvent.After) {
		return nil
	}

	if err := i.sender.Send(ctx, userEvent); err != nil {
		return fmt.Errorf("error sending user event ID [%s]: %w", userEvent.ID, err)
	}

	return nil
}

// sameProfile compares users ignoring the bookkeeping timestamp of the last write.
func sameProfile(before *model.User, after *model.User) bool {
	if before == nil || after == nil {
		return before == nil && after == nil
	}
	b, a := *before, *after
	b.UpdatedAt = a.UpdatedAt
	return b == a
}
