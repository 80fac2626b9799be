package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/assignpro/assignpro-web/config"
	"github.com/assignpro/assignpro-web/internal/adapters/authroles"
	"github.com/assignpro/assignpro-web/internal/adapters/devauth"
	"github.com/assignpro/assignpro-web/internal/adapters/oidc"
	"github.com/assignpro/assignpro-web/internal/ports"
)

// Credentials is the backend pair the session store drives. Registrar is nil when the
// backend cannot create accounts.
type Credentials struct {
	Verifier  ports.CredentialVerifier
	Registrar ports.Registrar
}

// BuildCredentials selects the credential backend for the configured auth mode.
func BuildCredentials(ctx context.Context, cfg config.AuthConfig, logger *slog.Logger) (Credentials, error) {
	if logger == nil {
		logger = slog.Default()
	}
	roles := authroles.EmailRoleMapper{
		AdminMarker:  cfg.AdminMarker,
		WriterMarker: cfg.WriterMarker,
	}

	switch cfg.Mode {
	case config.AuthModeMock, "":
		backend := devauth.NewBackend(devauth.Config{
			Delay: devAuthDelay(cfg.DevAuth),
			Roles: roles,
		})
		logger.InfoContext(ctx, "credential backend selected", "mode", config.AuthModeMock, "delay", cfg.DevAuth.Delay)
		return Credentials{Verifier: backend, Registrar: backend}, nil

	case config.AuthModeOIDC:
		oidcCfg := oidc.Config{
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			Scope:        cfg.OIDC.Scope,
			DiscoveryURL: cfg.OIDC.DiscoveryURL,
			RoleClaim:    cfg.OIDC.RoleClaim,
		}
		if cfg.OIDC.EmailRoleFallback {
			oidcCfg.Fallback = roles
		}
		verifier, err := oidc.NewPasswordVerifier(ctx, oidcCfg)
		if err != nil {
			return Credentials{}, fmt.Errorf("oidc credential backend: %w", err)
		}
		logger.InfoContext(ctx, "credential backend selected",
			"mode", config.AuthModeOIDC,
			"discovery_url", cfg.OIDC.DiscoveryURL,
			"role_claim", cfg.OIDC.RoleClaim,
			"email_role_fallback", cfg.OIDC.EmailRoleFallback,
		)
		return Credentials{Verifier: verifier}, nil

	default:
		return Credentials{}, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// devAuthDelay maps the configured latency onto devauth.Config, where zero means the default.
func devAuthDelay(cfg config.DevAuthConfig) time.Duration {
	if cfg.Delay <= 0 {
		return -1
	}
	return cfg.Delay
}
