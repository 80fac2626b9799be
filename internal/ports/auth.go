package ports

// Package ports defines interfaces (hexagonal ports) for session and credential behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
)

// ErrSlotEmpty is returned by SlotStore.Read when nothing is persisted.
var ErrSlotEmpty = errors.New("session slot is empty")

// SlotStore persists the single remembered identity record.
// Read returns the raw encoded record so callers decide how to treat malformed data.
type SlotStore interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// CredentialVerifier checks an e-mail/password pair and yields the identity it belongs to.
// A rejected pair is reported as an unauthenticated error.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (domainauth.Identity, error)
}

// RegisterRequest carries the fields of a new account. Role is supplied by the caller, never derived.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     domainauth.Role
}

// Registrar creates an account and returns its identity.
type Registrar interface {
	Register(ctx context.Context, req RegisterRequest) (domainauth.Identity, error)
}

// RoleMapper derives a role from an account e-mail.
type RoleMapper interface {
	Map(email string) domainauth.Role
}
