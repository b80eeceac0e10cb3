package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rbroggi/clerksync/internal/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type fakeHealthClient struct {
	grpc_health_v1.HealthClient
	status grpc_health_v1.HealthCheckResponse_ServingStatus
}

func (f *fakeHealthClient) Check(ctx context.Context, in *grpc_health_v1.HealthCheckRequest, opts ...grpc.CallOption) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: f.status}, nil
}

type countingHandler struct {
	calls int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	w.WriteHeader(http.StatusNoContent)
}

func TestNewRouter(t *testing.T) {
	_, err := NewRouter(RouterArgs{})
	require.Error(t, err)

	_, err = NewRouter(RouterArgs{
		Webhook:     &countingHandler{},
		CurrentUser: &countingHandler{},
		Guard:       func(h http.Handler) http.Handler { return h },
		WebhookPath: "no-leading-slash",
	})
	require.Error(t, err)
}

func TestRouter(t *testing.T) {
	health := &fakeHealthClient{status: grpc_health_v1.HealthCheckResponse_SERVING}
	webhook := &countingHandler{}
	currentUser := &countingHandler{}
	guarded := 0

	router, err := NewRouter(RouterArgs{
		WebhookPath: "/hooks/clerk",
		Webhook:     webhook,
		CurrentUser: currentUser,
		Guard: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				guarded++
				next.ServeHTTP(w, r)
			})
		},
		HealthClient: health,
	})
	require.NoError(t, err)

	serve := func(method, target string) int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, serve(http.MethodPost, "/hooks/clerk"))
	require.Equal(t, 1, webhook.calls)

	require.Equal(t, http.StatusNoContent, serve(http.MethodGet, CurrentUserPath))
	require.Equal(t, 1, currentUser.calls)

	require.Equal(t, http.StatusNotFound, serve(http.MethodPost, DefaultWebhookPath))
	require.Equal(t, 1, webhook.calls)

	require.Equal(t, http.StatusOK, serve(http.MethodGet, "/healthz"))

	health.status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	require.Equal(t, http.StatusServiceUnavailable, serve(http.MethodGet, "/healthz"))

	require.Equal(t, 5, guarded)
}

func TestRouter_MovedWebhookPathStaysPublic(t *testing.T) {
	t.Setenv("WEBHOOK_PATH", "/api/clerk/webhook")
	cfg, err := config.Parse[config.Server]()
	require.NoError(t, err)

	guard, err := NewRouteGuard(RouteGuardArgs{PublicRoutes: cfg.GuardPublicRoutes(), SignInURL: cfg.SignInURL})
	require.NoError(t, err)
	uc := &fakeWebhookUsecase{}
	currentUser := &countingHandler{}
	router, err := NewRouter(RouterArgs{
		WebhookPath: cfg.WebhookPath,
		Webhook:     NewWebhookHandler(WebhookHandlerArgs{Usecase: uc, Verifier: &fakeVerifier{}}),
		CurrentUser: currentUser,
		Guard:       guard,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, cfg.WebhookPath, strings.NewReader(deletedBody))
	for k, v := range svixHeaders() {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, uc.events, 1)

	// the rest of the api stays protected
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CurrentUserPath, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, currentUser.calls)
}
