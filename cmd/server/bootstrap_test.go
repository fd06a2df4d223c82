package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shorif2005/projectflow/internal/app"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	cfg := &app.Config{}
	cfg.Server.Port = 0
	cfg.Server.BaseURL = "http://localhost:8000"
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "bootstrap.sqlite")
	cfg.Auth.JWT.Secret = "bootstrap-test-secret"
	cfg.Auth.JWT.Issuer = "test-suite"
	cfg.Auth.JWT.TTL = 15 * time.Minute
	cfg.Auth.Session.RefreshTTL = time.Hour
	cfg.Auth.Session.RefreshLength = 48
	cfg.Auth.OTP.Digits = 6
	cfg.Auth.OTP.TTL = 10 * time.Minute
	cfg.Invites.DailyLimit = 10
	cfg.Invites.TokenBytes = 48
	return cfg
}

func TestBootstrapRuntime(t *testing.T) {
	cfg := testConfig(t)
	cfg.Maintenance.Enabled = true
	cfg.Maintenance.Schedule = "@hourly"

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		stack.Shutdown(context.Background(), zap.NewNop())
	})

	require.NotNil(t, stack.DB)
	require.NotNil(t, stack.SessionSvc)
	require.NotNil(t, stack.Mailer)
	require.NotNil(t, stack.Cleaner)
	require.NotNil(t, stack.Router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	stack.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEnsureSecretsPresent(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, ensureSecretsPresent(cfg))

	cfg.Auth.JWT.Secret = "   "
	require.Error(t, ensureSecretsPresent(cfg))

	require.Error(t, ensureSecretsPresent(nil))
}
