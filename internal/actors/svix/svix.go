package svix

import (
	"errors"
	"fmt"
	"net/http"

	svixwh "github.com/svix/svix-webhooks/go"
)

// Header names of the signature envelope.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

// Verifier authenticates webhook deliveries signed with the svix scheme.
type Verifier struct {
	webhook *svixwh.Webhook
}

// NewVerifier creates a Verifier for the given signing secret (`whsec_` prefixed or raw base64).
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("empty webhook secret")
	}
	wh, err := svixwh.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	return &Verifier{webhook: wh}, nil
}

// Verify checks the signature headers against the raw payload. Deliveries older or newer than
// five minutes are rejected.
func (v *Verifier) Verify(payload []byte, headers http.Header) error {
	return v.webhook.Verify(payload, headers)
}
