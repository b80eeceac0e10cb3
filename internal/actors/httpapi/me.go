package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/rbroggi/clerksync/internal/core/model"
	log "github.com/sirupsen/logrus"
)

// CurrentUserHandlerArgs are the mandatory args to instantiate the CurrentUserHandler.
type CurrentUserHandlerArgs struct {
	Usecase currentUserUsecase
}

// NewCurrentUserHandler creates a new CurrentUserHandler
func NewCurrentUserHandler(args CurrentUserHandlerArgs) *CurrentUserHandler {
	return &CurrentUserHandler{usecase: args.Usecase}
}

// CurrentUserHandler returns the synced record of the signed-in user. It must sit behind the route guard.
type CurrentUserHandler struct {
	usecase currentUserUsecase
}

type currentUserResponse struct {
	User *model.User `json:"user"`
}

func (h *CurrentUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Missing session token"})
		return
	}

	user, err := h.usecase.GetUser(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			log.WithField("clerk_id", claims.Subject).Warn("signed-in user was not synced")
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
			return
		}
		log.WithError(err).Error("error invoking usecase GetUser")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, currentUserResponse{User: user})
}

// currentUserUsecase
type currentUserUsecase interface {
	// GetUser returns the user synced for the identity provider id.
	GetUser(ctx context.Context, clerkID string) (*model.User, error)
}
