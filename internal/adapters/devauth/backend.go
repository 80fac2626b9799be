package devauth

// Package devauth provides the demo credential backend: every non-empty credential pair is accepted,
// the role is derived from the e-mail, and each call waits a configurable delay to mimic a network round trip.

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assignpro/assignpro-web/internal/adapters/authroles"
	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
	apperrors "github.com/assignpro/assignpro-web/internal/errors"
	"github.com/assignpro/assignpro-web/internal/ports"
)

// DefaultDelay is the artificial latency of each call.
const DefaultDelay = time.Second

// IdentityNamespace scopes the name-based ids derived from e-mail addresses.
var IdentityNamespace = uuid.MustParse("6f1c2a4e-8b7d-4c3e-9a51-0d2f6b8e7c19")

var (
	_ ports.CredentialVerifier = (*Backend)(nil)
	_ ports.Registrar          = (*Backend)(nil)
)

// Config controls the demo backend.
type Config struct {
	// Delay before each answer; negative disables it, zero selects DefaultDelay.
	Delay time.Duration
	Roles ports.RoleMapper
}

// Backend implements ports.CredentialVerifier and ports.Registrar without an account store.
type Backend struct {
	delay time.Duration
	roles ports.RoleMapper
}

// NewBackend constructs a demo backend from Config.
func NewBackend(cfg Config) *Backend {
	delay := cfg.Delay
	switch {
	case delay == 0:
		delay = DefaultDelay
	case delay < 0:
		delay = 0
	}
	roles := cfg.Roles
	if roles == nil {
		roles = authroles.DefaultEmailRoleMapper()
	}
	return &Backend{delay: delay, roles: roles}
}

// VerifyCredentials accepts any non-empty pair and derives the role from the e-mail.
func (b *Backend) VerifyCredentials(ctx context.Context, email, password string) (domainauth.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domainauth.Identity{}, apperrors.Unauthenticated("email and password are required")
	}
	if err := b.wait(ctx); err != nil {
		return domainauth.Identity{}, err
	}
	return domainauth.NewIdentity(IdentityID(email), domainauth.LocalPart(email), email, b.roles.Map(email))
}

// Register returns the identity for the supplied fields; nothing is stored.
func (b *Backend) Register(ctx context.Context, req ports.RegisterRequest) (domainauth.Identity, error) {
	if err := b.wait(ctx); err != nil {
		return domainauth.Identity{}, err
	}
	ident, err := domainauth.NewIdentity(IdentityID(req.Email), req.Name, req.Email, req.Role)
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid registration")
	}
	return ident, nil
}

// IdentityID derives a stable id from an e-mail address, ignoring case and surrounding space.
func IdentityID(email string) string {
	return uuid.NewSHA1(IdentityNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

func (b *Backend) wait(ctx context.Context) error {
	if b.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
