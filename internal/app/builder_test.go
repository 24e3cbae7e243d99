package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/edap/edap-server/internal/config"
	connmocks "github.com/edap/edap-server/internal/connector/mocks"
	"github.com/edap/edap-server/internal/notify"
	"github.com/edap/edap-server/internal/telemetry"
)

func TestBaseConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults come from the server section", func(t *testing.T) {
		t.Parallel()
		built, err := baseConfig(WithConfig(&config.Config{}))
		require.NoError(t, err)
		assert.Equal(t, config.DefaultAddress, built.address)
		assert.Equal(t, config.DefaultRequestTimeout, built.requestTimeout)
		assert.Equal(t, defaultReadTimeout, built.readTimeout)
		assert.Equal(t, defaultWriteTimeout, built.writeTimeout)
		assert.Equal(t, defaultIdleTimeout, built.idleTimeout)
	})

	t.Run("configured values", func(t *testing.T) {
		t.Parallel()
		built, err := baseConfig(WithConfig(&config.Config{
			Server: config.ServerConfig{Address: ":7070", RequestTimeout: "5s"},
		}))
		require.NoError(t, err)
		assert.Equal(t, ":7070", built.address)
		assert.Equal(t, 5*time.Second, built.requestTimeout)
	})

	t.Run("option overrides configured address", func(t *testing.T) {
		t.Parallel()
		built, err := baseConfig(
			WithConfig(&config.Config{Server: config.ServerConfig{Address: ":7070"}}),
			WithAddress(":9090"),
		)
		require.NoError(t, err)
		assert.Equal(t, ":9090", built.address)
	})

	t.Run("missing config", func(t *testing.T) {
		t.Parallel()
		built, err := baseConfig(WithAddress(":9090"))
		require.Error(t, err)
		assert.Nil(t, built)
	})
}

func TestWithAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{name: "port only", address: ":8080"},
		{name: "localhost", address: "localhost:8080"},
		{name: "ipv4", address: "10.0.0.1:80"},
		{name: "ephemeral", address: "127.0.0.1:0"},
		{name: "empty", address: "", wantErr: true},
		{name: "no port", address: ":", wantErr: true},
		{name: "no colon", address: "8080", wantErr: true},
		{name: "port out of range", address: ":70000", wantErr: true},
		{name: "hostname", address: "example.com:80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &edapAppConfig{}
			err := WithAddress(tt.address)(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, cfg.address)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.address, cfg.address)
		})
	}
}

func TestNewEdapAppErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		errMsg string
	}{
		{
			name:   "unknown store",
			mutate: func(c *config.Config) { c.Store.Type = "etcd" },
			errMsg: "failed to create storage factory",
		},
		{
			name:   "unknown credentials backend",
			mutate: func(c *config.Config) { c.Credentials.Backend = "floppy" },
			errMsg: "failed to create credential store",
		},
		{
			name:   "unknown connector",
			mutate: func(c *config.Config) { c.Connector = config.ConnectorConfig{Type: "carrier-pigeon"} },
			errMsg: "failed to create connector",
		},
		{
			name:   "unknown sink",
			mutate: func(c *config.Config) { c.Notifications.Sink = "pager" },
			errMsg: "failed to create notification sink",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := createTestAppConfig(t)
			tt.mutate(cfg)

			app, err := NewEdapApp(context.Background(), WithConfig(cfg))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Nil(t, app)
		})
	}
}

func TestNewEdapAppInjectedComponents(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	tel, err := telemetry.New(context.Background())
	require.NoError(t, err)

	cfg := createTestAppConfig(t)
	cfg.Connector = config.ConnectorConfig{}
	cfg.Notifications.Sink = "pager"

	app, err := NewEdapApp(context.Background(),
		WithConfig(cfg),
		WithConnector(connmocks.NewMockConnector(ctrl)),
		WithSink(notify.NoopSink{}),
		WithTelemetry(tel),
	)
	require.NoError(t, err)
	assert.Nil(t, app.telemetry, "injected telemetry stays with the caller")
	assert.Same(t, cfg, app.GetConfig())
	require.NoError(t, app.Stop(time.Second))
}

func TestBuildHTTPServerMounts(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name       string
		admin      *config.AdminConfig
		wantStatus int
	}{
		{name: "admin disabled", wantStatus: http.StatusNotFound},
		{
			name:       "admin enabled",
			admin:      &config.AdminConfig{Username: "root", PasswordHash: string(hash)},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := createTestAppConfig(t)
			cfg.Admin = tt.admin
			app, err := NewEdapApp(context.Background(), WithConfig(cfg))
			require.NoError(t, err)
			t.Cleanup(func() { _ = app.Stop(time.Second) })

			h := app.GetHTTPServer().Handler

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/workers", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)

			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}
