package access

import (
	"slices"

	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
)

// Outcome is the result kind of a guard decision.
type Outcome int

const (
	// OutcomeLoading means the session is still resolving; show a neutral placeholder.
	OutcomeLoading Outcome = iota
	// OutcomeRender means the requested view may be rendered.
	OutcomeRender
	// OutcomeRedirectLogin sends an unauthenticated viewer to the login page.
	OutcomeRedirectLogin
	// OutcomeRedirectHome sends an authenticated viewer of the wrong role to their home.
	OutcomeRedirectHome
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeRender:
		return "render"
	case OutcomeRedirectLogin:
		return "redirect_login"
	case OutcomeRedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// Request is one navigation attempt. Empty Required means a public path.
// Target is the full location (path and query) a login redirect returns to; empty means Path.
type Request struct {
	Path     string
	Target   string
	Required []domainauth.Role
}

func (r Request) returnTo() string {
	if r.Target != "" {
		return r.Target
	}
	return r.Path
}

// Decision is the guard's verdict for a Request.
// ReturnTo is set on login redirects so the login flow can send the viewer back.
type Decision struct {
	Outcome  Outcome
	Location string
	ReturnTo string
}

// Redirects reports whether the decision navigates elsewhere.
func (d Decision) Redirects() bool {
	return d.Outcome == OutcomeRedirectLogin || d.Outcome == OutcomeRedirectHome
}

// Guard evaluates navigation requests against a session snapshot.
type Guard struct {
	policy *Policy
}

// NewGuard returns a guard using policy for role homes.
func NewGuard(policy *Policy) *Guard {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Guard{policy: policy}
}

// Policy exposes the table the guard consults.
func (g *Guard) Policy() *Policy { return g.policy }

// Decide applies the navigation rules in order: resolving, unauthenticated, wrong role, render.
// It never fails.
func (g *Guard) Decide(req Request, s domainauth.Session) Decision {
	switch s.State() {
	case domainauth.StateResolving:
		return Decision{Outcome: OutcomeLoading}
	case domainauth.StateUnauthenticated:
		if len(req.Required) > 0 {
			return Decision{Outcome: OutcomeRedirectLogin, Location: PathLogin, ReturnTo: req.returnTo()}
		}
	case domainauth.StateAuthenticated:
		if len(req.Required) > 0 && !slices.Contains(req.Required, s.Current.Role) {
			return Decision{Outcome: OutcomeRedirectHome, Location: g.policy.RoleHome(s.Current.Role)}
		}
	}
	return Decision{Outcome: OutcomeRender}
}

// RouteRequest builds the route-layer request for path, taking its required roles from the policy.
func (g *Guard) RouteRequest(path, target string) Request {
	return Request{Path: path, Target: target, Required: g.policy.RequiredRoles(path)}
}

// DashboardTarget resolves the dashboard alias: the role home when authenticated, the landing page otherwise.
func (g *Guard) DashboardTarget(s domainauth.Session) string {
	if s.Current == nil {
		return PathLanding
	}
	return g.policy.RoleHome(s.Current.Role)
}

// Both composes two decisions for the same navigation: the first non-render outcome wins.
func Both(outer, inner Decision) Decision {
	if outer.Outcome != OutcomeRender {
		return outer
	}
	return inner
}
