package httpx

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	assignpro "github.com/assignpro/assignpro-web"
	"github.com/assignpro/assignpro-web/internal/domain/access"
	"github.com/assignpro/assignpro-web/internal/observability/metrics"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Session SessionStore
	// Policy defaults to the built-in table.
	Policy *access.Policy
	// Optional filesystems; default to disk in dev mode and to the embedded assets otherwise.
	TemplateFS fs.FS
	StaticFS   fs.FS
	Metrics    metrics.Sink
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// Ready backs /readyz; nil means always ready.
	Ready  func() bool
	IsDev  bool
	Logger *slog.Logger
}

// NewRouter builds the mux and wraps it with the route-layer guard.
func NewRouter(services RouterServices) (http.Handler, error) {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := services.Policy
	if policy == nil {
		policy = access.DefaultPolicy()
	}
	templateFS, staticFS, err := resolveAssetFS(services)
	if err != nil {
		return nil, err
	}

	layout, err := NewLayoutRenderer(LayoutConfig{TemplateFS: templateFS, Policy: policy, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("layout renderer: %w", err)
	}
	guard := access.NewGuard(policy)
	guardCfg := GuardConfig{
		Session: services.Session,
		Guard:   guard,
		Layout:  layout,
		Metrics: services.Metrics,
	}

	pages := &PageHandlers{Session: services.Session, Layout: layout, Guard: guard}
	auth := &AuthHandlers{Svc: services.Session, Policy: policy, Layout: layout, Logger: logger}
	health := &HealthHandlers{Ready: services.Ready}

	mux := http.NewServeMux()
	registerPublicRoutes(mux, pages)
	registerAuthRoutes(mux, auth)
	registerViewRoutes(mux, pages, guardCfg)
	registerProbeRoutes(mux, health, services.MetricsHandler)
	mux.Handle("GET /static/", staticHandler(staticFS, services.IsDev))

	handler := &notFoundHandler{mux: mux, pages: pages}
	return RouteGuard(guardCfg)(handler), nil
}

func resolveAssetFS(services RouterServices) (fs.FS, fs.FS, error) {
	templateFS, staticFS := services.TemplateFS, services.StaticFS
	if services.IsDev {
		if templateFS == nil {
			templateFS = os.DirFS(TemplatePathFromRoot)
		}
		if staticFS == nil {
			staticFS = os.DirFS(StaticPathFromRoot)
		}
		return templateFS, staticFS, nil
	}

	var err error
	if templateFS == nil {
		if templateFS, err = fs.Sub(assignpro.TemplateFS, TemplatePathFromRoot); err != nil {
			return nil, nil, fmt.Errorf("template filesystem: %w", err)
		}
	}
	if staticFS == nil {
		if staticFS, err = fs.Sub(assignpro.StaticFS, StaticPathFromRoot); err != nil {
			return nil, nil, fmt.Errorf("static filesystem: %w", err)
		}
	}
	return templateFS, staticFS, nil
}

func registerPublicRoutes(mux *http.ServeMux, h *PageHandlers) {
	mux.HandleFunc("GET /{$}", h.Landing)
	mux.HandleFunc("GET "+access.PathLogin, h.LoginPage)
	mux.HandleFunc("GET "+access.PathRegister, h.RegisterPage)
	mux.HandleFunc("GET "+access.PathDashboard, h.Dashboard)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

// registerViewRoutes mounts one view per protected path, each behind its own role check.
func registerViewRoutes(mux *http.ServeMux, h *PageHandlers, cfg GuardConfig) {
	policy := cfg.Guard.Policy()
	view := http.HandlerFunc(h.View)
	for _, path := range policy.ProtectedPaths() {
		mux.Handle("GET "+path, RequireRoles(cfg, policy.RequiredRoles(path)...)(view))
	}
}

func registerProbeRoutes(mux *http.ServeMux, h *HealthHandlers, metricsHandler http.Handler) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
}

// staticHandler serves /static/* with cache headers suited to the mode.
func staticHandler(fsys fs.FS, isDev bool) http.Handler {
	files := http.StripPrefix("/static/", http.FileServer(http.FS(fsys)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isDev {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		files.ServeHTTP(w, r)
	})
}

// notFoundHandler renders the not-found page for navigations no route matches.
type notFoundHandler struct {
	mux   *http.ServeMux
	pages *PageHandlers
}

func (h *notFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, pattern := h.mux.Handler(r); pattern == "" && isNavigation(r) {
		h.pages.NotFound(w, r)
		return
	}
	h.mux.ServeHTTP(w, r)
}
