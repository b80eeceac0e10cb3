package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Default paths.
const (
	DefaultWebhookPath = "/api/webhooks/clerk"
	CurrentUserPath    = "/api/me"
)

// RouterArgs are the arguments to build the HTTP router.
type RouterArgs struct {
	// WebhookPath is where the webhook handler is mounted. Defaults to DefaultWebhookPath.
	WebhookPath string

	Webhook     http.Handler
	CurrentUser http.Handler

	// Guard wraps the whole mux.
	Guard func(http.Handler) http.Handler

	// HealthClient backs /healthz. Optional.
	HealthClient grpc_health_v1.HealthClient
}

// NewRouter builds the HTTP entrypoint of the server.
func NewRouter(args RouterArgs) (http.Handler, error) {
	if args.Webhook == nil || args.CurrentUser == nil || args.Guard == nil {
		return nil, errors.New("router requires webhook, current user and guard handlers")
	}
	webhookPath := args.WebhookPath
	if webhookPath == "" {
		webhookPath = DefaultWebhookPath
	}

	var opts []runtime.ServeMuxOption
	if args.HealthClient != nil {
		opts = append(opts, runtime.WithHealthzEndpoint(args.HealthClient))
	}
	mux := runtime.NewServeMux(opts...)

	if err := mux.HandlePath(http.MethodPost, webhookPath, adapt(args.Webhook)); err != nil {
		return nil, fmt.Errorf("error registering webhook path %q: %w", webhookPath, err)
	}
	if err := mux.HandlePath(http.MethodGet, CurrentUserPath, adapt(args.CurrentUser)); err != nil {
		return nil, fmt.Errorf("error registering current user path: %w", err)
	}

	return args.Guard(mux), nil
}

func adapt(h http.Handler) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		h.ServeHTTP(w, r)
	}
}
