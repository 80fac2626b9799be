package httpx

import (
	"errors"
	"net/http"

	"github.com/assignpro/assignpro-web/internal/domain/access"
	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
)

// PageHandlers serves the browser-facing pages.
type PageHandlers struct {
	Session SessionReader
	Layout  *LayoutRenderer
	Guard   *access.Guard
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, v PageView) {
	h.Layout.Render(w, r, sessionFor(r.Context(), h.Session), v)
}

// Landing renders the public landing page.
func (h *PageHandlers) Landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, PageView{Content: ContentLanding, Title: "Welcome"})
}

// LoginPage renders the login form, carrying a safe return path.
func (h *PageHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, PageView{
		Content: ContentLogin,
		Title:   "Log in",
		Data:    map[string]any{"RedirectURI": safeReturnPath(r.URL.Query().Get("redirect_uri"))},
	})
}

// RegisterPage renders the sign-up form.
func (h *PageHandlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, PageView{
		Content: ContentRegister,
		Title:   "Sign up",
		Data: map[string]any{
			"Role":  domainauth.RoleClient,
			"Roles": domainauth.Roles(),
		},
	})
}

// View renders a protected view titled by its menu label.
func (h *PageHandlers) View(w http.ResponseWriter, r *http.Request) {
	title := h.Guard.Policy().Label(r.URL.Path)
	if title == "" {
		title = r.URL.Path
	}
	h.render(w, r, PageView{Content: ContentView, Title: title})
}

// Dashboard resolves the /dashboard alias on every request: the role home when authenticated,
// the landing page otherwise.
func (h *PageHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap := sessionFor(r.Context(), h.Session)
	if snap.Resolving {
		h.Layout.RenderLoading(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, h.Guard.DashboardTarget(snap), http.StatusFound)
}

// NotFound renders the public not-found page.
func (h *PageHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("no such page")})
		return
	}
	h.render(w, r, PageView{Content: ContentNotFound, Title: "Not found", Status: http.StatusNotFound})
}
