package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, vars map[string]string) (AppConfig, error) {
	t.Helper()
	var cfg AppConfig
	err := env.ParseWithOptions(&cfg, env.Options{Environment: vars})
	if err == nil {
		cfg.Sanitize()
	}
	return cfg, err
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	cfg, err := parse(t, map[string]string{})
	require.NoError(t, err)

	assert.False(t, cfg.IsDev)
	assert.Equal(t, AuthModeMock, cfg.Auth.Mode)
	assert.Equal(t, time.Second, cfg.Auth.DevAuth.Delay)
	assert.Equal(t, "role", cfg.Auth.OIDC.RoleClaim)
	assert.False(t, cfg.Auth.OIDC.EmailRoleFallback)
	assert.Equal(t, "admin", cfg.Auth.AdminMarker)
	assert.Equal(t, "writer", cfg.Auth.WriterMarker)
	assert.Equal(t, SlotBackendMemory, cfg.Slot.Backend)
	assert.Equal(t, "user", cfg.Slot.Key)
	assert.Equal(t, "assignpro:", cfg.Slot.RedisPrefix)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.True(t, cfg.Observability.Metrics.IsEnabled())
	assert.Equal(t, "assignpro", cfg.Postgres.Name)
	assert.Equal(t, "localhost:6379", cfg.Redis.URI)
	assert.NoError(t, cfg.Validate())
}

func TestAppConfig_Overrides(t *testing.T) {
	cfg, err := parse(t, map[string]string{
		"DEV":                           "true",
		"AUTH_MODE":                     "OIDC",
		"OIDC_CLIENT_ID":                "assignpro-web",
		"OIDC_DISCOVERY_URL":            "https://id.example.com",
		"OIDC_ROLE_CLAIM":               "realm_access.roles[0]",
		"OIDC_EMAIL_ROLE_FALLBACK":      "true",
		"SLOT_BACKEND":                  "Redis",
		"SLOT_KEY":                      " viewer ",
		"REDIS_URI":                     "redis://cache:6379/2",
		"DEV_AUTH_DELAY":                "250ms",
		"OBSERVABILITY_METRICS_ENABLED": "false",
		"AUTH_ADMIN_MARKER":             " ",
	})
	require.NoError(t, err)

	assert.True(t, cfg.IsDev)
	assert.Equal(t, AuthModeOIDC, cfg.Auth.Mode)
	assert.Equal(t, "realm_access.roles[0]", cfg.Auth.OIDC.RoleClaim)
	assert.True(t, cfg.Auth.OIDC.EmailRoleFallback)
	assert.Equal(t, SlotBackendRedis, cfg.Slot.Backend)
	assert.Equal(t, "viewer", cfg.Slot.Key)
	assert.Equal(t, 250*time.Millisecond, cfg.Auth.DevAuth.Delay)
	assert.False(t, cfg.Observability.Metrics.IsEnabled())
	assert.Equal(t, "admin", cfg.Auth.AdminMarker)
	assert.NoError(t, cfg.Validate())
}

func TestAppConfig_RejectsUnknownEnums(t *testing.T) {
	_, err := parse(t, map[string]string{"AUTH_MODE": "ldap"})
	assert.ErrorContains(t, err, "invalid AuthMode")

	_, err = parse(t, map[string]string{"SLOT_BACKEND": "sqlite"})
	assert.ErrorContains(t, err, "invalid SlotBackend")
}

func TestAppConfig_Validate(t *testing.T) {
	cfg, err := parse(t, map[string]string{
		"AUTH_MODE":    "oidc",
		"SLOT_BACKEND": "redis",
		"REDIS_URI":    "  ",
	})
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "OIDC_CLIENT_ID")
	assert.ErrorContains(t, err, "OIDC_DISCOVERY_URL")
	assert.ErrorContains(t, err, "REDIS_URI")
}

func TestAppConfig_NodeEnvEnablesDev(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg, err := parse(t, map[string]string{})
	require.NoError(t, err)
	assert.True(t, cfg.IsDev)
}

func TestSlotConfig_Sanitize(t *testing.T) {
	s := SlotConfig{Key: "   "}
	s.Sanitize()
	assert.Equal(t, SlotBackendMemory, s.Backend)
	assert.Equal(t, "user", s.Key)
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	h := HTTPConfig{ShutdownTimeout: -time.Second}
	h.Sanitize()
	assert.Equal(t, ":8080", h.Addr)
	assert.Equal(t, 10*time.Second, h.ShutdownTimeout)
}

func TestAuthConfig_SanitizeClampsDelay(t *testing.T) {
	a := AuthConfig{DevAuth: DevAuthConfig{Delay: -time.Second}}
	a.Sanitize()
	assert.Zero(t, a.DevAuth.Delay)
	assert.Equal(t, "writer", a.WriterMarker)
}

func TestValidSlotBackends(t *testing.T) {
	for _, b := range ValidSlotBackends() {
		var got SlotBackend
		require.NoError(t, got.UnmarshalText([]byte(b)))
		assert.Equal(t, b, got)
	}
}
