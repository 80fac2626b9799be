package httpx

import (
	"context"

	"github.com/assignpro/assignpro-web/internal/domain/access"
	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

type routeDecisionKey struct{}

// SetSessionInContext returns a child context carrying the snapshot the route guard evaluated,
// so every layer of one request decides on the same state.
func SetSessionInContext(ctx context.Context, s domainauth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// GetSessionFromContext returns the snapshot stored by the route guard and whether one was present.
func GetSessionFromContext(ctx context.Context) (domainauth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(domainauth.Session)
	return s, ok
}

// sessionFor returns the request's snapshot, or a fresh one from store when no guard ran.
func sessionFor(ctx context.Context, store SessionReader) domainauth.Session {
	if s, ok := GetSessionFromContext(ctx); ok {
		return s
	}
	if store == nil {
		return domainauth.Session{}
	}
	return store.Snapshot()
}

// withRouteDecision records the route layer's verdict for the view layer.
func withRouteDecision(ctx context.Context, d access.Decision) context.Context {
	return context.WithValue(ctx, routeDecisionKey{}, d)
}

// routeDecisionFrom returns the route layer's verdict. Without one the route layer is treated as allowing.
func routeDecisionFrom(ctx context.Context) access.Decision {
	if d, ok := ctx.Value(routeDecisionKey{}).(access.Decision); ok {
		return d
	}
	return access.Decision{Outcome: access.OutcomeRender}
}
