package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode selects the credential backend.
type AuthMode string

const (
	// AuthModeOIDC verifies credentials against an OpenID Connect provider.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock accepts any non-empty credentials and derives the role from the e-mail.
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: mock, oidc)", v)
	}
}

// OIDCConfig contains the provider settings for the password grant.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// RoleClaim is a JMESPath expression over the ID token claims.
	RoleClaim string `env:"ROLE_CLAIM" envDefault:"role"`
	// EmailRoleFallback derives the role from the e-mail markers when the token has no role claim.
	// Off by default: an e-mail address is not proof of a role.
	EmailRoleFallback bool `env:"EMAIL_ROLE_FALLBACK" envDefault:"false"`
}

// DevAuthConfig controls the mock backend used when AUTH_MODE=mock.
type DevAuthConfig struct {
	// Delay simulates backend latency. Zero or negative answers immediately.
	Delay time.Duration `env:"DELAY" envDefault:"1s"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which credential backend to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"mock"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// AdminMarker and WriterMarker are the e-mail substrings that derive a role.
	// The mock backend always uses them; the OIDC backend only with OIDC_EMAIL_ROLE_FALLBACK set.
	AdminMarker  string `env:"AUTH_ADMIN_MARKER"  envDefault:"admin"`
	WriterMarker string `env:"AUTH_WRITER_MARKER" envDefault:"writer"`
}

// Sanitize trims provider settings and restores empty markers.
func (a *AuthConfig) Sanitize() {
	a.OIDC.ClientID = strings.TrimSpace(a.OIDC.ClientID)
	a.OIDC.DiscoveryURL = strings.TrimSpace(a.OIDC.DiscoveryURL)
	a.OIDC.RoleClaim = strings.TrimSpace(a.OIDC.RoleClaim)
	if a.AdminMarker = strings.TrimSpace(a.AdminMarker); a.AdminMarker == "" {
		a.AdminMarker = "admin"
	}
	if a.WriterMarker = strings.TrimSpace(a.WriterMarker); a.WriterMarker == "" {
		a.WriterMarker = "writer"
	}
	if a.DevAuth.Delay < 0 {
		a.DevAuth.Delay = 0
	}
}
