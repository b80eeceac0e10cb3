package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseServer_Defaults(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "")
	cfg, err := Parse[Server]()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Empty(t, cfg.WebhookSecret)
	require.Equal(t, StorePostgres, cfg.Store.Backend)
	require.False(t, cfg.Store.HardDelete)
	require.Equal(t, "/sign-in", cfg.SignInURL)
	require.Equal(t, "/api/webhooks/clerk", cfg.WebhookPath)
	require.Equal(t, []string{
		"/", "/api/webhooks/clerk", "/api/webhooks/stripe", "/sign-in/**", "/sign-up/**", "/healthz",
	}, cfg.PublicRoutes)
}

func TestParseServer_Overrides(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "whsec_abc")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("HARD_DELETE", "true")
	t.Setenv("PUBLIC_ROUTES", "/,/docs/**")

	cfg, err := Parse[Server]()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "whsec_abc", cfg.WebhookSecret)
	require.Equal(t, StoreMongo, cfg.Store.Backend)
	require.True(t, cfg.Store.HardDelete)
	require.Equal(t, []string{"/", "/docs/**"}, cfg.PublicRoutes)
}

func TestServer_Validate(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")
	cfg, err := Parse[Server]()
	require.NoError(t, err)
	require.Error(t, cfg.Validate())
}

func TestParse_InvalidValue(t *testing.T) {
	t.Setenv("HARD_DELETE", "maybe")
	_, err := Parse[Server]()
	require.Error(t, err)
}

func TestParseWorker(t *testing.T) {
	t.Setenv("PUBSUB_PUBLIC_USER_EVENT_SUBSCRIPTIONS", "a.sub,b.sub")
	cfg, err := Parse[Worker]()
	require.NoError(t, err)
	require.Equal(t, "clerksync", cfg.PubSub.ProjectID)
	require.Equal(t, []string{"a.sub", "b.sub"}, cfg.PubSub.PublicSubscriptions)
}

func TestServer_GuardPublicRoutes(t *testing.T) {
	tests := []struct {
		name        string
		webhookPath string
		routes      string
		expected    []string
	}{
		{
			name:        "default webhook path is already public",
			webhookPath: "/api/webhooks/clerk",
			routes:      "/,/api/webhooks/clerk",
			expected:    []string{"/", "/api/webhooks/clerk"},
		},
		{
			name:        "moved webhook path is added",
			webhookPath: "/api/clerk/webhook",
			routes:      "/,/api/webhooks/clerk",
			expected:    []string{"/", "/api/webhooks/clerk", "/api/clerk/webhook"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv("WEBHOOK_PATH", test.webhookPath)
			t.Setenv("PUBLIC_ROUTES", test.routes)
			cfg, err := Parse[Server]()
			require.NoError(t, err)
			require.Equal(t, test.expected, cfg.GuardPublicRoutes())
			require.Equal(t, strings.Split(test.routes, ","), cfg.PublicRoutes)
		})
	}
}
