package usecase

import (
	"context"
	"fmt"

	"github.com/rbroggi/clerksync/internal/core/model"
	"github.com/rbroggi/clerksync/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// SyncServiceArgs contains the mandatory arguments for the SyncService.
type SyncServiceArgs struct {
	// Repository is the repository for persistance operations.
	Repository ports.Repository

	// IdentityProvider receives the internal id of created users. Nil disables the metadata attach.
	IdentityProvider ports.IdentityProvider
}

// SyncServiceOptArgs are the optional arguments for building a SyncService
type SyncServiceOptArgs = func(*SyncService)

// WithHardDelete makes user deletions remove the record instead of soft-deleting it.
func WithHardDelete(hardDelete bool) SyncServiceOptArgs {
	return func(s *SyncService) {
		s.hardDelete = hardDelete
	}
}

// NewSyncService creates a new SyncService.
func NewSyncService(args SyncServiceArgs, optArgs ...SyncServiceOptArgs) *SyncService {
	s := &SyncService{repository: args.Repository, identityProvider: args.IdentityProvider}
	for _, opt := range optArgs {
		opt(s)
	}
	return s
}

// SyncService applies identity provider events to the user store.
type SyncService struct {
	repository       ports.Repository
	identityProvider ports.IdentityProvider
	hardDelete       bool
}

// Handle applies event to the user store. Unrecognized events are not acted upon and produce an unhandled result.
func (s *SyncService) Handle(ctx context.Context, event model.Event) (*model.SyncResult, error) {
	var (
		user *model.User
		err  error
	)
	switch e := event.(type) {
	case model.UserCreated:
		user, err = s.createUser(ctx, e)
	case model.UserUpdated:
		user, err = s.updateUser(ctx, e)
	case model.UserDeleted:
		user, err = s.deleteUser(ctx, e)
	case model.UnrecognizedEvent:
		return &model.SyncResult{Type: e.Type}, nil
	default:
		return nil, fmt.Errorf("unsupported event implementation %T", event)
	}
	if err != nil {
		return nil, err
	}
	return &model.SyncResult{Type: event.EventType(), Handled: true, User: user}, nil
}

// GetUser returns the user identified by clerkID. It returns model.ErrNotFound if the user was never synced.
func (s *SyncService) GetUser(ctx context.Context, clerkID string) (*model.User, error) {
	user, err := s.repository.GetUser(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("error getting user from repository: %w", err)
	}
	return user, nil
}

func (s *SyncService) createUser(ctx context.Context, e model.UserCreated) (*model.User, error) {
	if e.ClerkID == "" {
		return nil, model.ErrMissingClerkID
	}
	if e.Email == "" {
		return nil, fmt.Errorf("error creating user [%s]: %w", e.ClerkID, model.ErrNoEmailAddress)
	}

	user := &model.User{
		ClerkID:   e.ClerkID,
		Email:     e.Email,
		Username:  e.Username,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Photo:     e.Photo,
	}
	if err := s.repository.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error saving user in repository: %w", err)
	}

	// the record exists at this point; a failed attach must not turn the sync into a failure.
	if s.identityProvider != nil {
		if err := s.identityProvider.AttachUserID(ctx, user.ClerkID, user.ID); err != nil {
			log.WithError(err).
				WithField("clerk_id", user.ClerkID).
				WithField("user_id", user.ID).
				Warn("could not attach user id to identity provider account")
		}
	}

	return user, nil
}

func (s *SyncService) updateUser(ctx context.Context, e model.UserUpdated) (*model.User, error) {
	if e.ClerkID == "" {
		return nil, model.ErrMissingClerkID
	}
	user, err := s.repository.UpdateUser(ctx, e.ClerkID, model.UserChanges{
		Username:  e.Username,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Photo:     e.Photo,
	})
	if err != nil {
		return nil, fmt.Errorf("error updating user [%s]: %w", e.ClerkID, err)
	}
	return user, nil
}

func (s *SyncService) deleteUser(ctx context.Context, e model.UserDeleted) (*model.User, error) {
	if e.ClerkID == "" {
		return nil, model.ErrMissingClerkID
	}
	user, err := s.repository.DeleteUser(ctx, ports.DeleteUserQuery{
		ClerkID:    e.ClerkID,
		HardDelete: s.hardDelete,
	})
	if err != nil {
		return nil, fmt.Errorf("error deleting user [%s] from repository: %w", e.ClerkID, err)
	}
	return user, nil
}
