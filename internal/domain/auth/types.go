package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"encoding/json"
	"errors"
	"strings"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
	RoleWriter Role = "writer"
)

// Roles lists every role in the closed enumeration, in menu order.
func Roles() []Role {
	return []Role{RoleClient, RoleAdmin, RoleWriter}
}

// Valid reports whether the role is a member of the enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleWriter:
		return true
	default:
		return false
	}
}

// ParseRole normalizes a role string and reports whether it is supported.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if role.Valid() {
		return role, true
	}
	return "", false
}

var (
	// ErrInvalidRole is returned when an identity would be built without a supported role.
	ErrInvalidRole = errors.New("role must be one of: client, admin, writer")
	// ErrMissingID is returned when an identity has no id.
	ErrMissingID = errors.New("identity id cannot be empty")
	// ErrMissingEmail is returned when an identity has no e-mail.
	ErrMissingEmail = errors.New("identity email cannot be empty")
)

// Identity is the authenticated principal. Role is fixed at creation.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
}

// NewIdentity builds a validated identity. An identity without a valid role is never constructed.
func NewIdentity(id, displayName, email string, role Role) (Identity, error) {
	ident := Identity{
		ID:          strings.TrimSpace(id),
		DisplayName: strings.TrimSpace(displayName),
		Email:       strings.TrimSpace(email),
		Role:        role,
	}
	if err := ident.Validate(); err != nil {
		return Identity{}, err
	}
	return ident, nil
}

// Validate checks the identity invariants. Decoded records must pass it before adoption.
func (i Identity) Validate() error {
	if i.ID == "" {
		return ErrMissingID
	}
	if i.Email == "" {
		return ErrMissingEmail
	}
	if !i.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// UnmarshalJSON accepts both "name" and "displayName" for the display label.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
		Role        Role   `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	name := raw.Name
	if name == "" {
		name = raw.DisplayName
	}
	*i = Identity{ID: raw.ID, DisplayName: name, Email: raw.Email, Role: raw.Role}
	return nil
}

// LocalPart returns the text of an e-mail address before '@', or the whole address when absent.
func LocalPart(email string) string {
	email = strings.TrimSpace(email)
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}

// ViewerState is the coarse state of a session as seen by the route guard.
type ViewerState int

const (
	StateResolving ViewerState = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s ViewerState) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot of the session store.
// Current is nil when nobody is logged in.
type Session struct {
	Current   *Identity
	Resolving bool
}

// State maps the snapshot onto the guard's three states.
func (s Session) State() ViewerState {
	switch {
	case s.Resolving:
		return StateResolving
	case s.Current == nil:
		return StateUnauthenticated
	default:
		return StateAuthenticated
	}
}

// Authenticated reports whether an identity is current, regardless of resolving.
func (s Session) Authenticated() bool { return s.Current != nil }

// RoleOf returns the current role, or "" when absent.
func (s Session) RoleOf() Role {
	if s.Current == nil {
		return ""
	}
	return s.Current.Role
}
