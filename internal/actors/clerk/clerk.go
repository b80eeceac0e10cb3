package clerk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

// IdentityProviderArgs are the mandatory arguments to build an IdentityProvider.
type IdentityProviderArgs struct {
	// SecretKey is the backend API key of the Clerk instance.
	SecretKey string
}

// IdentityProviderOptArgs are the optional arguments for building an IdentityProvider.
type IdentityProviderOptArgs = func(*clerk.ClientConfig)

// WithAPIURL overrides the backend API base URL.
func WithAPIURL(url string) IdentityProviderOptArgs {
	return func(c *clerk.ClientConfig) {
		c.URL = clerk.String(url)
	}
}

// IdentityProvider talks to the Clerk backend API.
type IdentityProvider struct {
	users *user.Client
}

// NewIdentityProvider creates a new IdentityProvider.
func NewIdentityProvider(args IdentityProviderArgs, optArgs ...IdentityProviderOptArgs) (*IdentityProvider, error) {
	if args.SecretKey == "" {
		return nil, errors.New("empty clerk secret key")
	}
	config := &clerk.ClientConfig{}
	config.Key = clerk.String(args.SecretKey)
	for _, opt := range optArgs {
		opt(config)
	}
	return &IdentityProvider{users: user.NewClient(config)}, nil
}

type publicMetadata struct {
	UserID string `json:"userId"`
}

// AttachUserID stores userID under public_metadata.userId of the account. Other metadata keys are preserved.
func (p *IdentityProvider) AttachUserID(ctx context.Context, clerkID, userID string) error {
	data, err := json.Marshal(publicMetadata{UserID: userID})
	if err != nil {
		return fmt.Errorf("error marshaling public metadata: %w", err)
	}
	raw := json.RawMessage(data)
	if _, err := p.users.UpdateMetadata(ctx, clerkID, &user.UpdateMetadataParams{PublicMetadata: &raw}); err != nil {
		return fmt.Errorf("error updating metadata of clerk user [%s]: %w", clerkID, err)
	}
	return nil
}
