package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Credential backend and role derivation
//   - database.go: Postgres and Redis connections
//   - http.go: HTTP server configuration
//   - slot.go: Where the remembered identity is persisted
//   - observability.go: Metrics exposure
type AppConfig struct {
	// IsDev controls development mode behavior (templates from disk, no asset caching).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth AuthConfig

	// Session slot configuration
	Slot SlotConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Slot.Sanitize()
	c.Auth.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// Validate reports settings that cannot work together.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Auth.Mode == AuthModeOIDC {
		if c.Auth.OIDC.ClientID == "" {
			errs = append(errs, errors.New("OIDC_CLIENT_ID is required when AUTH_MODE=oidc"))
		}
		if c.Auth.OIDC.DiscoveryURL == "" {
			errs = append(errs, errors.New("OIDC_DISCOVERY_URL is required when AUTH_MODE=oidc"))
		}
	}
	if c.Slot.Backend == SlotBackendRedis && !c.Redis.UseCluster && !c.Redis.UseSentinel &&
		strings.TrimSpace(c.Redis.URI) == "" {
		errs = append(errs, errors.New("REDIS_URI is required when SLOT_BACKEND=redis"))
	}
	if c.Slot.Backend == SlotBackendPostgres && c.Postgres.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required when SLOT_BACKEND=postgres"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// This is called by Sanitize() to ensure IsDev is set correctly.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
