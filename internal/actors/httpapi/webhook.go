package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rbroggi/clerksync/internal/actors/svix"
	"github.com/rbroggi/clerksync/internal/core/model"
	log "github.com/sirupsen/logrus"
)

// maxWebhookBodyBytes bounds the size of a delivery body.
const maxWebhookBodyBytes = 1 << 20

// WebhookHandlerArgs are the mandatory args to instantiate the WebhookHandler.
type WebhookHandlerArgs struct {
	// Usecase applies the verified events.
	Usecase webhookUsecase

	// Verifier authenticates deliveries. Nil means no signing secret is configured and
	// every delivery is answered with a server error.
	Verifier signatureVerifier
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(args WebhookHandlerArgs) *WebhookHandler {
	return &WebhookHandler{usecase: args.Usecase, verifier: args.Verifier}
}

// WebhookHandler receives the signed user events of the identity provider.
type WebhookHandler struct {
	usecase  webhookUsecase
	verifier signatureVerifier
}

type syncResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

type unhandledResponse struct {
	Message string            `json:"message"`
	Type    model.EventType   `json:"type"`
	Headers map[string]string `json:"headers"`
	Payload json.RawMessage   `json:"payload"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.WithField("path", r.URL.Path)

	if h.verifier == nil {
		logger.Error("webhook signing secret is not configured")
		writeText(w, http.StatusInternalServerError, "WEBHOOK_SECRET not defined")
		return
	}

	svixID := r.Header.Get(svix.HeaderID)
	svixTimestamp := r.Header.Get(svix.HeaderTimestamp)
	svixSignature := r.Header.Get(svix.HeaderSignature)
	logger = logger.
		WithField("svix_id", svixID).
		WithField("svix_timestamp", svixTimestamp).
		WithField("svix_signature", svixSignature)

	if svixID == "" || svixTimestamp == "" || svixSignature == "" {
		logger.Warn("missing svix headers")
		writeText(w, http.StatusBadRequest, "Error occurred -- no svix headers")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		logger.WithError(err).Warn("error reading webhook body")
		writeText(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !json.Valid(body) {
		logger.Warn("webhook body is not valid JSON")
		writeText(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	logger.WithField("body_bytes", len(body)).Debug("webhook body received")

	if err := h.verifier.Verify(body, r.Header); err != nil {
		logger.WithError(err).Warn("error verifying webhook")
		writeText(w, http.StatusBadRequest, "Verification error: "+err.Error())
		return
	}

	event, err := decodeEvent(body)
	if err != nil {
		logger.WithError(err).Warn("error decoding webhook event")
		writeText(w, http.StatusBadRequest, "Invalid event payload: "+err.Error())
		return
	}
	logger = logger.WithField("event_type", event.EventType())

	res, err := h.usecase.Handle(r.Context(), event)
	if err != nil {
		logger.WithError(err).Error("error handling webhook event")
		writeText(w, http.StatusInternalServerError, "Error occurred while processing webhook: "+err.Error())
		return
	}

	if !res.Handled {
		logger.Info("unhandled webhook event")
		writeJSON(w, http.StatusOK, unhandledResponse{
			Message: "Unhandled event",
			Type:    res.Type,
			Headers: map[string]string{
				svix.HeaderID:        svixID,
				svix.HeaderTimestamp: svixTimestamp,
			},
			Payload: body,
		})
		return
	}

	logger.WithField("user_id", res.User.ID).Info("webhook event synced")
	writeJSON(w, http.StatusOK, syncResponse{Message: "OK", User: res.User})
}

// webhookUsecase
type webhookUsecase interface {
	// Handle applies an identity provider event.
	Handle(ctx context.Context, event model.Event) (*model.SyncResult, error)
}

type signatureVerifier interface {
	// Verify authenticates the raw payload against the signature headers.
	Verify(payload []byte, headers http.Header) error
}
