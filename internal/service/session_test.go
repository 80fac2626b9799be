package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
	apperrors "github.com/assignpro/assignpro-web/internal/errors"
	"github.com/assignpro/assignpro-web/internal/mocks"
	mockauth "github.com/assignpro/assignpro-web/internal/mocks/auth"
	"github.com/assignpro/assignpro-web/internal/observability/metrics"
	"github.com/assignpro/assignpro-web/internal/ports"
)

type recordingSink struct {
	mu          sync.Mutex
	transitions []metrics.SessionMetric
	states      []domainauth.Session
}

func (r *recordingSink) SessionTransition(m metrics.SessionMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, m)
}

func (r *recordingSink) SessionState(s domainauth.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recordingSink) GuardDecision(string, string) {}

func (r *recordingSink) last() metrics.SessionMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitions[len(r.transitions)-1]
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

var writer = domainauth.Identity{ID: "1", DisplayName: "jane", Email: "jane.writer@x.io", Role: domainauth.RoleWriter}

func newTestService(slot ports.SlotStore, verifier ports.CredentialVerifier, registrar ports.Registrar) (*SessionService, *recordingSink) {
	sink := &recordingSink{}
	svc := NewSessionService(SessionServiceOptions{
		Slot:      slot,
		Verifier:  verifier,
		Registrar: registrar,
		Metrics:   sink,
	})
	return svc, sink
}

func TestSessionService_StartsResolving(t *testing.T) {
	svc, _ := newTestService(mockauth.NewMemorySlot(nil), &mockauth.StubVerifier{}, nil)

	assert.True(t, svc.Resolving())
	_, ok := svc.Current()
	assert.False(t, ok)
	assert.Equal(t, domainauth.StateResolving, svc.Snapshot().State())
}

func TestSessionService_Initialize(t *testing.T) {
	tests := []struct {
		name     string
		slot     *mockauth.MemorySlot
		want     *domainauth.Identity
		result   string
		keepsRaw bool
	}{
		{
			name:   "empty slot",
			slot:   mockauth.NewMemorySlot(nil),
			result: metrics.ResultNoop,
		},
		{
			name:     "valid record",
			slot:     mockauth.NewMemorySlot([]byte(`{"id":"1","name":"jane","email":"jane.writer@x.io","role":"writer"}`)),
			want:     &writer,
			result:   metrics.ResultSuccess,
			keepsRaw: true,
		},
		{
			name:     "displayName alias",
			slot:     mockauth.NewMemorySlot([]byte(`{"id":"1","displayName":"jane","email":"jane.writer@x.io","role":"writer"}`)),
			want:     &writer,
			result:   metrics.ResultSuccess,
			keepsRaw: true,
		},
		{
			name:     "malformed record",
			slot:     mockauth.NewMemorySlot([]byte(`{not json`)),
			result:   metrics.ResultError,
			keepsRaw: true,
		},
		{
			name:     "unknown role",
			slot:     mockauth.NewMemorySlot([]byte(`{"id":"1","email":"a@b.c","role":"superuser"}`)),
			result:   metrics.ResultError,
			keepsRaw: true,
		},
		{
			name:   "read failure",
			slot:   &mockauth.MemorySlot{ReadErr: errors.New("disk gone")},
			result: metrics.ResultError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.slot.Raw()
			svc, sink := newTestService(tt.slot, &mockauth.StubVerifier{}, nil)

			got := svc.Initialize(context.Background())

			assert.False(t, got.Resolving)
			assert.False(t, svc.Resolving())
			assert.Equal(t, tt.want, got.Current)
			assert.Equal(t, tt.result, sink.last().Result)
			assert.Equal(t, metrics.TransitionInitialize, sink.last().Transition)
			if tt.keepsRaw {
				assert.Equal(t, before, tt.slot.Raw(), "hydration must not rewrite the slot")
			}
			assert.Zero(t, tt.slot.Writes)
			assert.Zero(t, tt.slot.Clears)
		})
	}
}

func TestSessionService_InitializeIsIdempotent(t *testing.T) {
	slot := mockauth.NewMemorySlot(mustJSON(t, writer))
	svc, _ := newTestService(slot, &mockauth.StubVerifier{}, nil)

	first := svc.Initialize(context.Background())
	second := svc.Initialize(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, writer, *second.Current)
}

func TestSessionService_InitializeReadErrorIsHydration(t *testing.T) {
	slot := &mockauth.MemorySlot{ReadErr: errors.New("boom")}
	svc, sink := newTestService(slot, &mockauth.StubVerifier{}, nil)

	svc.Initialize(context.Background())

	assert.True(t, apperrors.IsHydration(sink.last().Err))
}

func TestSessionService_LoginSuccess(t *testing.T) {
	slot := mockauth.NewMemorySlot(nil)
	verifier := &mockauth.StubVerifier{Identity: writer}
	svc, sink := newTestService(slot, verifier, nil)
	svc.Initialize(context.Background())

	ident, err := svc.Login(context.Background(), "  jane.writer@x.io ", "pw")
	require.NoError(t, err)

	assert.Equal(t, writer, ident)
	cur, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, writer, cur)
	assert.False(t, svc.Resolving())
	assert.JSONEq(t, `{"id":"1","name":"jane","email":"jane.writer@x.io","role":"writer"}`, string(slot.Raw()))
	assert.Equal(t, metrics.ResultSuccess, sink.last().Result)
}

func TestSessionService_LoginTrimsEmailBeforeVerifying(t *testing.T) {
	var gotEmail, gotPassword string
	verifier := &mockauth.StubVerifier{VerifyFunc: func(_ context.Context, email, password string) (domainauth.Identity, error) {
		gotEmail, gotPassword = email, password
		return writer, nil
	}}
	svc, _ := newTestService(mockauth.NewMemorySlot(nil), verifier, nil)

	_, err := svc.Login(context.Background(), " jane.writer@x.io\t", " pw ")
	require.NoError(t, err)
	assert.Equal(t, "jane.writer@x.io", gotEmail)
	assert.Equal(t, " pw ", gotPassword)
}

func TestSessionService_LoginValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		field    string
	}{
		{name: "empty email", email: "", password: "pw", field: "email"},
		{name: "blank email", email: "   ", password: "pw", field: "email"},
		{name: "empty password", email: "a@b.c", password: "", field: "password"},
		{name: "blank password", email: "a@b.c", password: "  ", field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := mockauth.NewMemorySlot(nil)
			verifier := &mockauth.StubVerifier{Identity: writer}
			svc, _ := newTestService(slot, verifier, nil)
			svc.Initialize(context.Background())

			_, err := svc.Login(context.Background(), tt.email, tt.password)

			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
			assert.Zero(t, verifier.Calls)
			assert.Zero(t, slot.Writes)
			assert.False(t, svc.Resolving())
		})
	}
}

func TestSessionService_LoginFailureLeavesStateUntouched(t *testing.T) {
	admin := domainauth.Identity{ID: "9", DisplayName: "root", Email: "root.admin@x.io", Role: domainauth.RoleAdmin}
	slot := mockauth.NewMemorySlot(mustJSON(t, admin))
	verifier := &mockauth.StubVerifier{Err: apperrors.Unauthenticated("invalid credentials")}
	svc, sink := newTestService(slot, verifier, nil)
	svc.Initialize(context.Background())
	before := slot.Raw()

	_, err := svc.Login(context.Background(), "jane.writer@x.io", "wrong")

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticated(err))
	cur, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, admin, cur)
	assert.Equal(t, before, slot.Raw())
	assert.False(t, svc.Resolving())
	assert.Equal(t, metrics.ResultError, sink.last().Result)
}

func TestSessionService_LoginSlotWriteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	slot := mocks.NewMockSlotStore(ctrl)
	verifier := mocks.NewMockCredentialVerifier(ctrl)

	slot.EXPECT().Read(gomock.Any()).Return(nil, ports.ErrSlotEmpty)
	verifier.EXPECT().VerifyCredentials(gomock.Any(), "jane.writer@x.io", "pw").Return(writer, nil)
	slot.EXPECT().Write(gomock.Any(), gomock.Any()).Return(errors.New("quota exceeded"))

	svc, _ := newTestService(slot, verifier, nil)
	svc.Initialize(context.Background())

	_, err := svc.Login(context.Background(), "jane.writer@x.io", "pw")

	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
	_, ok := svc.Current()
	assert.False(t, ok, "identity must not be adopted when it could not be persisted")
	assert.False(t, svc.Resolving())
}

func TestSessionService_LoginRejectsInvalidIdentityFromBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	slot := mocks.NewMockSlotStore(ctrl)
	verifier := mocks.NewMockCredentialVerifier(ctrl)

	verifier.EXPECT().VerifyCredentials(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domainauth.Identity{ID: "1", Email: "a@b.c", Role: "superuser"}, nil)
	// No Write expected: gomock fails the test if it happens.

	svc, _ := newTestService(slot, verifier, nil)

	_, err := svc.Login(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
}

func TestSessionService_LoginReplacesCurrent(t *testing.T) {
	admin := domainauth.Identity{ID: "9", Email: "root.admin@x.io", Role: domainauth.RoleAdmin}
	slot := mockauth.NewMemorySlot(mustJSON(t, admin))
	svc, _ := newTestService(slot, &mockauth.StubVerifier{Identity: writer}, nil)
	svc.Initialize(context.Background())

	_, err := svc.Login(context.Background(), "jane.writer@x.io", "pw")
	require.NoError(t, err)

	var stored domainauth.Identity
	require.NoError(t, json.Unmarshal(slot.Raw(), &stored))
	assert.Equal(t, writer, stored)
	cur, _ := svc.Current()
	assert.Equal(t, writer, cur)
}

func TestSessionService_LoginResolvingDuringVerification(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	verifier := &mockauth.StubVerifier{VerifyFunc: func(context.Context, string, string) (domainauth.Identity, error) {
		close(entered)
		<-release
		return writer, nil
	}}
	svc, _ := newTestService(mockauth.NewMemorySlot(nil), verifier, nil)
	svc.Initialize(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Login(context.Background(), "jane.writer@x.io", "pw")
		done <- err
	}()

	<-entered
	assert.True(t, svc.Resolving())
	assert.Equal(t, domainauth.StateResolving, svc.Snapshot().State())
	close(release)

	require.NoError(t, <-done)
	assert.False(t, svc.Resolving())
}

func TestSessionService_LoginCanceledContext(t *testing.T) {
	slot := mockauth.NewMemorySlot(nil)
	verifier := &mockauth.StubVerifier{VerifyFunc: func(ctx context.Context, _, _ string) (domainauth.Identity, error) {
		<-ctx.Done()
		return domainauth.Identity{}, ctx.Err()
	}}
	svc, _ := newTestService(slot, verifier, nil)
	svc.Initialize(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.Login(ctx, "jane.writer@x.io", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok := svc.Current()
	assert.False(t, ok)
	assert.Zero(t, slot.Writes)
	assert.False(t, svc.Resolving())
}

func TestSessionService_Register(t *testing.T) {
	slot := mockauth.NewMemorySlot(nil)
	registrar := &mockauth.StubRegistrar{ID: "42"}
	svc, _ := newTestService(slot, &mockauth.StubVerifier{}, registrar)
	svc.Initialize(context.Background())

	ident, err := svc.Register(context.Background(), RegisterInput{
		Name:     " Sam ",
		Email:    "sam@x.io",
		Password: "pw",
		Role:     "Admin",
	})
	require.NoError(t, err)

	want := domainauth.Identity{ID: "42", DisplayName: "Sam", Email: "sam@x.io", Role: domainauth.RoleAdmin}
	assert.Equal(t, want, ident)
	cur, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, want, cur)
	assert.Equal(t, 1, slot.Writes)
}

func TestSessionService_RegisterValidation(t *testing.T) {
	valid := RegisterInput{Name: "Sam", Email: "sam@x.io", Password: "pw", Role: "client"}

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{name: "missing name", mutate: func(in *RegisterInput) { in.Name = " " }, field: "name"},
		{name: "missing email", mutate: func(in *RegisterInput) { in.Email = "" }, field: "email"},
		{name: "missing password", mutate: func(in *RegisterInput) { in.Password = "" }, field: "password"},
		{name: "unknown role", mutate: func(in *RegisterInput) { in.Role = "guest" }, field: "role"},
		{name: "empty role", mutate: func(in *RegisterInput) { in.Role = "" }, field: "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := mockauth.NewMemorySlot(nil)
			registrar := &mockauth.StubRegistrar{}
			svc, _ := newTestService(slot, &mockauth.StubVerifier{}, registrar)
			svc.Initialize(context.Background())

			in := valid
			tt.mutate(&in)
			_, err := svc.Register(context.Background(), in)

			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
			assert.Zero(t, registrar.Calls)
			assert.Zero(t, slot.Writes)
		})
	}
}

func TestSessionService_RegisterWithoutRegistrar(t *testing.T) {
	svc, _ := newTestService(mockauth.NewMemorySlot(nil), &mockauth.StubVerifier{}, nil)
	svc.Initialize(context.Background())

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Sam", Email: "sam@x.io", Password: "pw", Role: "client"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnsupported, apperrors.GetCode(err))
}

func TestSessionService_RegisterBackendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	registrar := mocks.NewMockRegistrar(ctrl)
	registrar.EXPECT().
		Register(gomock.Any(), ports.RegisterRequest{Name: "Sam", Email: "sam@x.io", Password: "pw", Role: domainauth.RoleWriter}).
		Return(domainauth.Identity{}, errors.New("directory offline"))

	slot := mockauth.NewMemorySlot(mustJSON(t, writer))
	svc, _ := newTestService(slot, &mockauth.StubVerifier{}, registrar)
	svc.Initialize(context.Background())

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Sam", Email: "sam@x.io", Password: "pw", Role: "writer"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory offline")
	cur, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, writer, cur)
	assert.Zero(t, slot.Writes)
}

func TestSessionService_Logout(t *testing.T) {
	slot := mockauth.NewMemorySlot(mustJSON(t, writer))
	svc, sink := newTestService(slot, &mockauth.StubVerifier{}, nil)
	svc.Initialize(context.Background())

	svc.Logout(context.Background())

	_, ok := svc.Current()
	assert.False(t, ok)
	assert.Nil(t, slot.Raw())
	assert.Equal(t, metrics.TransitionLogout, sink.last().Transition)
	assert.Equal(t, metrics.ResultSuccess, sink.last().Result)

	// Logging out twice is harmless.
	svc.Logout(context.Background())
	assert.Equal(t, 2, slot.Clears)
}

func TestSessionService_LogoutSucceedsWhenClearFails(t *testing.T) {
	slot := mockauth.NewMemorySlot(mustJSON(t, writer))
	svc, sink := newTestService(slot, &mockauth.StubVerifier{}, nil)
	svc.Initialize(context.Background())
	slot.ClearErr = errors.New("read-only")

	svc.Logout(context.Background())

	_, ok := svc.Current()
	assert.False(t, ok)
	assert.False(t, svc.Resolving())
	assert.Equal(t, metrics.ResultError, sink.last().Result)
}

func TestSessionService_LogoutResolvesWhileClearing(t *testing.T) {
	ctrl := gomock.NewController(t)
	slot := mocks.NewMockSlotStore(ctrl)
	slot.EXPECT().Read(gomock.Any()).Return(mustJSON(t, writer), nil)
	svc, sink := newTestService(slot, &mockauth.StubVerifier{}, nil)
	svc.Initialize(context.Background())

	slot.EXPECT().Clear(gomock.Any()).DoAndReturn(func(context.Context) error {
		snap := svc.Snapshot()
		assert.True(t, snap.Resolving)
		require.NotNil(t, snap.Current)
		assert.Equal(t, writer.Email, snap.Current.Email)
		return nil
	})
	svc.Logout(context.Background())

	assert.Equal(t, domainauth.Session{}, svc.Snapshot())
	n := len(sink.states)
	require.GreaterOrEqual(t, n, 2)
	assert.True(t, sink.states[n-2].Resolving)
	assert.Equal(t, domainauth.Session{}, sink.states[n-1])
	assert.Equal(t, metrics.TransitionLogout, sink.last().Transition)
}

func TestSessionService_WaitResolved(t *testing.T) {
	svc, _ := newTestService(mockauth.NewMemorySlot(mustJSON(t, writer)), &mockauth.StubVerifier{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := svc.WaitResolved(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go svc.Initialize(context.Background())

	sess, err := svc.WaitResolved(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess.Current)
	assert.Equal(t, writer, *sess.Current)
}

func TestSessionService_SingleSessionInvariant(t *testing.T) {
	slot := mockauth.NewMemorySlot(nil)
	registrar := &mockauth.StubRegistrar{}
	svc, _ := newTestService(slot, &mockauth.StubVerifier{Identity: writer}, registrar)
	svc.Initialize(context.Background())

	check := func() {
		t.Helper()
		raw := slot.Raw()
		cur, ok := svc.Current()
		if !ok {
			assert.Nil(t, raw)
			return
		}
		var stored domainauth.Identity
		require.NoError(t, json.Unmarshal(raw, &stored))
		assert.Equal(t, cur, stored)
	}

	check()
	_, err := svc.Login(context.Background(), "jane.writer@x.io", "pw")
	require.NoError(t, err)
	check()
	_, err = svc.Register(context.Background(), RegisterInput{Name: "Sam", Email: "sam@x.io", Password: "pw", Role: "client"})
	require.NoError(t, err)
	check()
	svc.Logout(context.Background())
	check()
}

func TestSessionService_ConcurrentTransitionsSerialize(t *testing.T) {
	slot := mockauth.NewMemorySlot(nil)
	svc, _ := newTestService(slot, &mockauth.StubVerifier{Identity: writer}, nil)
	svc.Initialize(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = svc.Login(context.Background(), "jane.writer@x.io", "pw")
				return
			}
			svc.Logout(context.Background())
		}(i)
	}
	wg.Wait()

	assert.False(t, svc.Resolving())
	cur, ok := svc.Current()
	if ok {
		var stored domainauth.Identity
		require.NoError(t, json.Unmarshal(slot.Raw(), &stored))
		assert.Equal(t, cur, stored)
	} else {
		assert.Nil(t, slot.Raw())
	}
}
