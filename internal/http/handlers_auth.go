package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/assignpro/assignpro-web/internal/domain/access"
	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
	apperrors "github.com/assignpro/assignpro-web/internal/errors"
	"github.com/assignpro/assignpro-web/internal/service"
)

// SessionStore is the session surface the auth handlers drive.
type SessionStore interface {
	SessionReader
	Login(ctx context.Context, email, password string) (domainauth.Identity, error)
	Register(ctx context.Context, in service.RegisterInput) (domainauth.Identity, error)
	Logout(ctx context.Context)
	WaitResolved(ctx context.Context) (domainauth.Session, error)
}

var _ SessionStore = (*service.SessionService)(nil)

var errInvalidWait = errors.New("wait must be a non-negative duration such as 5s")

// AuthHandlers provides HTTP handlers for the session transitions.
type AuthHandlers struct {
	Svc    SessionStore
	Policy *access.Policy
	Layout *LayoutRenderer
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) policy() *access.Policy {
	if h.Policy != nil {
		return h.Policy
	}
	return access.DefaultPolicy()
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RedirectURI string `json:"redirect_uri"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// statusResponse is the JSON view of a session snapshot.
type statusResponse struct {
	Resolving     bool                 `json:"resolving"`
	Authenticated bool                 `json:"authenticated"`
	User          *domainauth.Identity `json:"user,omitempty"`
	Home          string               `json:"home,omitempty"`
	Menu          []access.MenuItem    `json:"menu,omitempty"`
}

func newStatusResponse(s domainauth.Session, policy *access.Policy) statusResponse {
	resp := statusResponse{Resolving: s.Resolving, Authenticated: s.Authenticated()}
	if s.Current != nil {
		user := *s.Current
		resp.User = &user
		resp.Home = policy.RoleHome(user.Role)
		resp.Menu = policy.Menu(user.Role)
	}
	return resp
}

// Login verifies credentials and starts a session.
// POST /auth/login with a form or JSON body {email, password, redirect_uri}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isJSONBody(r) {
		if !DecodeJSON(w, r, &req) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
			return
		}
		req = loginRequest{
			Email:       r.PostForm.Get("email"),
			Password:    r.PostForm.Get("password"),
			RedirectURI: r.PostForm.Get("redirect_uri"),
		}
	}

	ident, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger().InfoContext(r.Context(), "login rejected", "error", err)
		if wantsJSON(r) {
			WriteAppError(w, err)
			return
		}
		h.Layout.Render(w, r, settled(h.Svc.Snapshot()), PageView{
			Content: ContentLogin,
			Title:   "Log in",
			Status:  apperrors.HTTPStatus(err),
			Data: map[string]any{
				"Error":       publicMessage(err),
				"Email":       req.Email,
				"RedirectURI": safeReturnPath(req.RedirectURI),
			},
		})
		return
	}

	h.succeed(w, r, ident, postLoginTarget(h.policy(), ident.Role, req.RedirectURI))
}

// Register creates an account and starts a session.
// POST /auth/register with a form or JSON body {name, email, password, role}.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if isJSONBody(r) {
		if !DecodeJSON(w, r, &req) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
			return
		}
		req = registerRequest{
			Name:     r.PostForm.Get("name"),
			Email:    r.PostForm.Get("email"),
			Password: r.PostForm.Get("password"),
			Role:     r.PostForm.Get("role"),
		}
	}

	ident, err := h.Svc.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.logger().InfoContext(r.Context(), "registration rejected", "error", err)
		if wantsJSON(r) {
			WriteAppError(w, err)
			return
		}
		h.Layout.Render(w, r, settled(h.Svc.Snapshot()), PageView{
			Content: ContentRegister,
			Title:   "Sign up",
			Status:  apperrors.HTTPStatus(err),
			Data: map[string]any{
				"Error": publicMessage(err),
				"Name":  req.Name,
				"Email": req.Email,
				"Role":  req.Role,
				"Roles": domainauth.Roles(),
			},
		})
		return
	}

	h.succeed(w, r, ident, h.policy().RoleHome(ident.Role))
}

// Logout ends the session. It always succeeds.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Svc.Logout(r.Context())

	if isAJAX(r) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": access.PathLanding,
		})
		return
	}
	http.Redirect(w, r, access.PathLanding, http.StatusSeeOther)
}

// Status returns the current session snapshot.
// GET /auth/status?wait=<duration> holds the request until no transition is in flight, up to 30s.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.Svc.Snapshot()
	if raw := r.URL.Query().Get("wait"); raw != "" && snap.Resolving {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_wait", Err: errInvalidWait})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), min(d, maxStatusWait))
		defer cancel()
		// A timeout still answers with the latest snapshot.
		snap, _ = h.Svc.WaitResolved(ctx)
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, newStatusResponse(snap, h.policy()))
}

func (h *AuthHandlers) succeed(w http.ResponseWriter, r *http.Request, ident domainauth.Identity, target string) {
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"status":      "success",
			"redirect_to": target,
			"user":        ident,
		})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// postLoginTarget returns candidate when it is a safe protected path the role may view, else the role home.
func postLoginTarget(policy *access.Policy, role domainauth.Role, candidate string) string {
	home := policy.RoleHome(role)
	safe := safeReturnPath(candidate)
	if safe == "" {
		return home
	}
	u, err := url.Parse(safe)
	if err != nil || len(policy.RequiredRoles(u.Path)) == 0 || !policy.Allows(role, u.Path) {
		return home
	}
	return safe
}

// safeReturnPath returns candidate when it is a same-origin relative path, or "" otherwise.
func safeReturnPath(candidate string) string {
	if candidate == "" || strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, "/\\") {
		return ""
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return ""
	}
	return candidate
}

// settled drops the resolving flag so a failed form can be re-rendered while another transition runs.
func settled(s domainauth.Session) domainauth.Session {
	return domainauth.Session{Current: s.Current}
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func isAJAX(r *http.Request) bool {
	return wantsJSON(r) ||
		strings.EqualFold(r.Header.Get("Hx-Request"), "true") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}
