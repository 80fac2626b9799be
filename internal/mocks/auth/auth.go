package auth

// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"slices"
	"sync"

	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
	"github.com/assignpro/assignpro-web/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SlotStore          = (*MemorySlot)(nil)
	_ ports.CredentialVerifier = (*StubVerifier)(nil)
	_ ports.Registrar          = (*StubRegistrar)(nil)
)

// MemorySlot is an in-memory slot with injectable failures and call counters.
type MemorySlot struct {
	mu       sync.Mutex
	value    []byte
	ReadErr  error
	WriteErr error
	ClearErr error
	Writes   int
	Clears   int
}

// NewMemorySlot returns a slot pre-filled with raw, or empty when raw is nil.
func NewMemorySlot(raw []byte) *MemorySlot {
	return &MemorySlot{value: slices.Clone(raw)}
}

func (m *MemorySlot) Read(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if m.value == nil {
		return nil, ports.ErrSlotEmpty
	}
	return slices.Clone(m.value), nil
}

func (m *MemorySlot) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.value = slices.Clone(data)
	return nil
}

func (m *MemorySlot) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Clears++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.value = nil
	return nil
}

// Raw returns the stored bytes, or nil when empty.
func (m *MemorySlot) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.value)
}

// StubVerifier answers VerifyCredentials with VerifyFunc, or with Identity/Err when unset.
type StubVerifier struct {
	VerifyFunc func(ctx context.Context, email, password string) (domainauth.Identity, error)
	Identity   domainauth.Identity
	Err        error
	Calls      int
}

func (s *StubVerifier) VerifyCredentials(ctx context.Context, email, password string) (domainauth.Identity, error) {
	s.Calls++
	if s.VerifyFunc != nil {
		return s.VerifyFunc(ctx, email, password)
	}
	return s.Identity, s.Err
}

// StubRegistrar echoes the request back as an identity unless Err is set.
type StubRegistrar struct {
	Err   error
	ID    string
	Calls int
}

func (s *StubRegistrar) Register(_ context.Context, req ports.RegisterRequest) (domainauth.Identity, error) {
	s.Calls++
	if s.Err != nil {
		return domainauth.Identity{}, s.Err
	}
	id := s.ID
	if id == "" {
		id = "reg-" + req.Email
	}
	return domainauth.NewIdentity(id, req.Name, req.Email, req.Role)
}
