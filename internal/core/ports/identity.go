package ports

import "context"

// IdentityProvider is the port towards the external identity provider.
type IdentityProvider interface {
	// AttachUserID records the internal userID on the external account identified by clerkID.
	AttachUserID(ctx context.Context, clerkID, userID string) error
}
