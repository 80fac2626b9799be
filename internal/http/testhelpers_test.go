package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/assignpro/assignpro-web/internal/adapters/devauth"
	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
	mockauth "github.com/assignpro/assignpro-web/internal/mocks/auth"
	"github.com/assignpro/assignpro-web/internal/ports"
	"github.com/assignpro/assignpro-web/internal/service"
)

// testEnv is a router backed by a real session store over in-memory doubles.
type testEnv struct {
	Handler http.Handler
	Session *service.SessionService
	Slot    *mockauth.MemorySlot
}

type envOptions struct {
	Verifier    ports.CredentialVerifier
	Registrar   ports.Registrar
	NoRegistrar bool
	Slot        *mockauth.MemorySlot
	SkipHydrate bool
	Ready       func() bool
	Metrics     http.Handler
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	backend := devauth.NewBackend(devauth.Config{Delay: -1})
	if opts.Verifier == nil {
		opts.Verifier = backend
	}
	if opts.Registrar == nil && !opts.NoRegistrar {
		opts.Registrar = backend
	}
	if opts.Slot == nil {
		opts.Slot = mockauth.NewMemorySlot(nil)
	}

	svc := service.NewSessionService(service.SessionServiceOptions{
		Slot:      opts.Slot,
		Verifier:  opts.Verifier,
		Registrar: opts.Registrar,
	})
	if !opts.SkipHydrate {
		svc.Initialize(context.Background())
	}

	h, err := NewRouter(RouterServices{
		Session:        svc,
		TemplateFS:     os.DirFS(TemplatePathFromTest),
		StaticFS:       os.DirFS("../../" + StaticPathFromRoot),
		MetricsHandler: opts.Metrics,
		Ready:          opts.Ready,
	})
	require.NoError(t, err)
	return &testEnv{Handler: h, Session: svc, Slot: opts.Slot}
}

// loginAs authenticates through the store directly.
func (e *testEnv) loginAs(t *testing.T, email string) domainauth.Identity {
	t.Helper()
	ident, err := e.Session.Login(context.Background(), email, "pw")
	require.NoError(t, err)
	return ident
}

func (e *testEnv) get(path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	e.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
