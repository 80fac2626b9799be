package httpx

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/assignpro/assignpro-web/internal/domain/access"
	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
	"github.com/assignpro/assignpro-web/internal/observability/metrics"
)

// SessionReader exposes the non-blocking snapshot of the session store.
type SessionReader interface {
	Snapshot() domainauth.Session
}

// GuardConfig wires the route-layer and view-layer guard middlewares.
type GuardConfig struct {
	Session SessionReader
	Guard   *access.Guard
	Layout  *LayoutRenderer
	Metrics metrics.Sink
	// Exempt lists path prefixes the route layer passes through untouched (API, health checks, assets).
	Exempt []string
}

//nolint:gochecknoglobals // static read-only default
var defaultExempt = []string{"/auth/", "/static/", "/healthz", "/readyz", "/metrics"}

func (c GuardConfig) withDefaults() GuardConfig {
	if c.Guard == nil {
		c.Guard = access.NewGuard(nil)
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Nop{}
	}
	if c.Exempt == nil {
		c.Exempt = defaultExempt
	}
	return c
}

func (c GuardConfig) exempt(path string) bool {
	for _, prefix := range c.Exempt {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RouteGuard is the route-table layer: it resolves the roles the requested path requires from the
// policy and decides before any handler runs. The evaluated snapshot is stored in the request context.
func RouteGuard(cfg GuardConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isNavigation(r) || cfg.exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			snap := sessionFor(r.Context(), cfg.Session)
			d := cfg.Guard.Decide(cfg.Guard.RouteRequest(r.URL.Path, r.URL.RequestURI()), snap)
			cfg.Metrics.GuardDecision(metrics.LayerRoute, d.Outcome.String())
			if cfg.respond(w, r, snap, d) {
				return
			}
			ctx := withRouteDecision(SetSessionInContext(r.Context(), snap), d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles is the per-view layer. It re-checks the view's own role list against the same
// snapshot and combines the result with the route layer's verdict, so a view is rendered only
// when both layers allow it.
func RequireRoles(cfg GuardConfig, roles ...domainauth.Role) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()
	required := slices.Clone(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := sessionFor(r.Context(), cfg.Session)
			view := cfg.Guard.Decide(access.Request{Path: r.URL.Path, Target: r.URL.RequestURI(), Required: required}, snap)
			cfg.Metrics.GuardDecision(metrics.LayerView, view.Outcome.String())
			d := access.Both(routeDecisionFrom(r.Context()), view)
			if cfg.respond(w, r, snap, d) {
				return
			}
			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), snap)))
		})
	}
}

// respond writes the response for a non-render decision and reports whether it did.
func (c GuardConfig) respond(w http.ResponseWriter, r *http.Request, snap domainauth.Session, d access.Decision) bool {
	switch d.Outcome {
	case access.OutcomeRender:
		return false
	case access.OutcomeLoading:
		if wantsJSON(r) {
			WriteJSON(w, http.StatusOK, newStatusResponse(snap, c.Guard.Policy()))
			return true
		}
		c.Layout.RenderLoading(w, r)
	case access.OutcomeRedirectLogin:
		loc := loginURL(d.ReturnTo)
		if wantsJSON(r) {
			WriteJSON(w, http.StatusUnauthorized, map[string]string{
				"error":       "authentication_required",
				"message":     "authentication required",
				"redirect_to": loc,
			})
			return true
		}
		http.Redirect(w, r, loc, http.StatusSeeOther)
	case access.OutcomeRedirectHome:
		if wantsJSON(r) {
			WriteJSON(w, http.StatusForbidden, map[string]string{
				"error":       "insufficient_permissions",
				"message":     "insufficient permissions",
				"redirect_to": d.Location,
			})
			return true
		}
		http.Redirect(w, r, d.Location, http.StatusSeeOther)
	}
	return true
}

// loginURL builds the login location carrying the path to return to.
func loginURL(returnTo string) string {
	if returnTo == "" {
		return access.PathLogin
	}
	u := url.URL{Path: access.PathLogin}
	q := url.Values{}
	q.Set("redirect_uri", returnTo)
	u.RawQuery = q.Encode()
	return u.String()
}

func isNavigation(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}
