package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
	apperrors "github.com/assignpro/assignpro-web/internal/errors"
	"github.com/assignpro/assignpro-web/internal/observability/metrics"
	obserrors "github.com/assignpro/assignpro-web/internal/observability/errors"
	"github.com/assignpro/assignpro-web/internal/ports"
)

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Slot     ports.SlotStore
	Verifier ports.CredentialVerifier
	// Registrar is optional; without it Register reports an unsupported error.
	Registrar ports.Registrar
	Metrics   metrics.Sink
	Logger    *slog.Logger
}

// RegisterInput carries the fields of a registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// SessionService owns the current identity and its single persisted copy.
//
// Readers take snapshots without locking. Transitions are serialized and publish a resolving
// snapshot on entry and a settled one on exit, success or not.
type SessionService struct {
	slot      ports.SlotStore
	verifier  ports.CredentialVerifier
	registrar ports.Registrar
	metrics   metrics.Sink
	logger    *slog.Logger

	mu    sync.Mutex
	state atomic.Pointer[sessionState]
}

type sessionState struct {
	session domainauth.Session
	changed chan struct{}
}

// NewSessionService constructs a store in the resolving state. Call Initialize to hydrate it.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	sink := opts.Metrics
	if sink == nil {
		sink = metrics.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &SessionService{
		slot:      opts.Slot,
		verifier:  opts.Verifier,
		registrar: opts.Registrar,
		metrics:   sink,
		logger:    logger.With("component", "session"),
	}
	s.state.Store(&sessionState{session: domainauth.Session{Resolving: true}, changed: make(chan struct{})})
	sink.SessionState(domainauth.Session{Resolving: true})
	return s
}

// Snapshot returns the latest published session. It never blocks.
func (s *SessionService) Snapshot() domainauth.Session {
	return s.state.Load().session
}

// Current returns the current identity, if any.
func (s *SessionService) Current() (domainauth.Identity, bool) {
	cur := s.Snapshot().Current
	if cur == nil {
		return domainauth.Identity{}, false
	}
	return *cur, true
}

// Resolving reports whether a transition or the initial hydration is in flight.
func (s *SessionService) Resolving() bool {
	return s.Snapshot().Resolving
}

// WaitResolved blocks until no transition is in flight or ctx ends, then returns the snapshot.
func (s *SessionService) WaitResolved(ctx context.Context) (domainauth.Session, error) {
	for {
		st := s.state.Load()
		if !st.session.Resolving {
			return st.session, nil
		}
		select {
		case <-ctx.Done():
			return st.session, ctx.Err()
		case <-st.changed:
		}
	}
}

// Initialize hydrates the store from the slot. A missing, unreadable or malformed record leaves
// the viewer unauthenticated; the failure is logged and never returned. Safe to call repeatedly.
func (s *SessionService) Initialize(ctx context.Context) domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.publish(domainauth.Session{Current: s.Snapshot().Current, Resolving: true})

	ident, err := s.hydrate(ctx)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "session hydration failed; continuing unauthenticated",
			"error", err, "error_class", obserrors.Classify(err))
		s.record(ctx, metrics.SessionMetric{Transition: metrics.TransitionInitialize, Result: metrics.ResultError, Err: err, Duration: time.Since(start)}, "")
		return s.publish(domainauth.Session{})
	case ident == nil:
		s.record(ctx, metrics.SessionMetric{Transition: metrics.TransitionInitialize, Result: metrics.ResultNoop, Duration: time.Since(start)}, "")
		return s.publish(domainauth.Session{})
	default:
		s.record(ctx, metrics.SessionMetric{Transition: metrics.TransitionInitialize, Result: metrics.ResultSuccess, Duration: time.Since(start)}, ident.Role)
		return s.publish(domainauth.Session{Current: ident})
	}
}

// hydrate returns nil without error when the slot is empty.
func (s *SessionService) hydrate(ctx context.Context) (*domainauth.Identity, error) {
	raw, err := s.slot.Read(ctx)
	if errors.Is(err, ports.ErrSlotEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Hydration(err, "read session slot")
	}
	var ident domainauth.Identity
	if decodeErr := json.Unmarshal(raw, &ident); decodeErr != nil {
		return nil, apperrors.Hydration(decodeErr, "decode session slot")
	}
	if validErr := ident.Validate(); validErr != nil {
		return nil, apperrors.Hydration(validErr, "invalid session record")
	}
	return &ident, nil
}

// Login verifies credentials, persists the identity and makes it current.
// On any failure the current identity and the slot are left as they were.
func (s *SessionService) Login(ctx context.Context, email, password string) (domainauth.Identity, error) {
	email = strings.TrimSpace(email)
	if err := requireFields(field{"email", email}, field{"password", strings.TrimSpace(password)}); err != nil {
		s.record(ctx, metrics.SessionMetric{Transition: metrics.TransitionLogin, Result: metrics.ResultError, Err: err}, "")
		return domainauth.Identity{}, err
	}

	return s.transition(ctx, metrics.TransitionLogin, func(ctx context.Context) (domainauth.Identity, error) {
		ident, err := s.verifier.VerifyCredentials(ctx, email, password)
		if err != nil {
			return domainauth.Identity{}, fmt.Errorf("verify credentials: %w", err)
		}
		return ident, nil
	})
}

// Register creates an account with the supplied role, persists it and makes it current.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (domainauth.Identity, error) {
	req, err := validateRegistration(in)
	if err == nil && s.registrar == nil {
		err = apperrors.Unsupported("registration is not available with the configured credential backend")
	}
	if err != nil {
		s.record(ctx, metrics.SessionMetric{Transition: metrics.TransitionRegister, Result: metrics.ResultError, Err: err}, "")
		return domainauth.Identity{}, err
	}

	return s.transition(ctx, metrics.TransitionRegister, func(ctx context.Context) (domainauth.Identity, error) {
		ident, regErr := s.registrar.Register(ctx, req)
		if regErr != nil {
			return domainauth.Identity{}, fmt.Errorf("register: %w", regErr)
		}
		return ident, nil
	})
}

// Logout forgets the current identity and clears the slot. It always succeeds; a slot failure is logged.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	cur := s.Snapshot()
	s.publish(domainauth.Session{Current: cur.Current, Resolving: true})

	m := metrics.SessionMetric{Transition: metrics.TransitionLogout, Result: metrics.ResultSuccess}
	if err := s.slot.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear session slot failed", "error", err, "error_class", obserrors.Classify(err))
		m.Result, m.Err = metrics.ResultError, err
	}
	s.publish(domainauth.Session{})
	m.Duration = time.Since(start)
	s.record(ctx, m, cur.RoleOf())
}

// transition runs acquire under the transition lock with the resolving flag raised,
// then persists and adopts the identity it yields.
func (s *SessionService) transition(
	ctx context.Context,
	name string,
	acquire func(context.Context) (domainauth.Identity, error),
) (domainauth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	prev := s.Snapshot().Current
	s.publish(domainauth.Session{Current: prev, Resolving: true})

	ident, err := acquire(ctx)
	if err == nil {
		err = s.persist(ctx, ident)
	}
	if err != nil {
		s.publish(domainauth.Session{Current: prev})
		s.record(ctx, metrics.SessionMetric{Transition: name, Result: metrics.ResultError, Err: err, Duration: time.Since(start)}, "")
		return domainauth.Identity{}, err
	}

	s.publish(domainauth.Session{Current: &ident})
	s.record(ctx, metrics.SessionMetric{Transition: name, Result: metrics.ResultSuccess, Duration: time.Since(start)}, ident.Role)
	return ident, nil
}

func (s *SessionService) persist(ctx context.Context, ident domainauth.Identity) error {
	if err := ident.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "credential backend returned an invalid identity")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.slot.Write(ctx, data); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist session")
	}
	return nil
}

func (s *SessionService) publish(sess domainauth.Session) domainauth.Session {
	next := &sessionState{session: sess, changed: make(chan struct{})}
	prev := s.state.Swap(next)
	close(prev.changed)
	s.metrics.SessionState(sess)
	return sess
}

func (s *SessionService) record(ctx context.Context, m metrics.SessionMetric, role domainauth.Role) {
	s.metrics.SessionTransition(m)
	attrs := []any{"transition", m.Transition, "result", m.Result}
	if role != "" {
		attrs = append(attrs, "role", string(role))
	}
	if m.Duration > 0 {
		attrs = append(attrs, "duration_ms", m.Duration.Milliseconds())
	}
	if m.Err != nil {
		attrs = append(attrs, "error", m.Err, "error_class", obserrors.Classify(m.Err))
		s.logger.InfoContext(ctx, "session transition failed", attrs...)
		return
	}
	s.logger.InfoContext(ctx, "session transition", attrs...)
}

type field struct{ name, value string }

func requireFields(fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return apperrors.ValidationField(f.name, f.name+" is required")
		}
	}
	return nil
}

func validateRegistration(in RegisterInput) (ports.RegisterRequest, error) {
	req := ports.RegisterRequest{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
	}
	if err := requireFields(
		field{"name", req.Name},
		field{"email", req.Email},
		field{"password", strings.TrimSpace(req.Password)},
	); err != nil {
		return req, err
	}
	role, ok := domainauth.ParseRole(in.Role)
	if !ok {
		return req, apperrors.ValidationField("role", domainauth.ErrInvalidRole.Error())
	}
	req.Role = role
	return req, nil
}
