// Package access holds the role authorization table and the route guard built on it.
// Both are pure: no I/O, no state beyond the immutable table.
package access

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
)

// Well-known public paths.
const (
	PathLanding   = "/"
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathDashboard = "/dashboard"
)

// MenuItem is one entry of a role's navigation menu.
type MenuItem struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// RoleRow is one row of the policy table. Menu order is Allowed order.
type RoleRow struct {
	Role    domainauth.Role
	Home    string
	Allowed []MenuItem
}

// Policy is the static per-role table of home path and allowed paths.
type Policy struct {
	rows     map[domainauth.Role]RoleRow
	required map[string][]domainauth.Role
}

// DefaultRows returns the built-in table.
func DefaultRows() []RoleRow {
	return []RoleRow{
		{
			Role: domainauth.RoleClient,
			Home: "/client-dashboard",
			Allowed: []MenuItem{
				{Path: "/client-dashboard", Label: "Dashboard"},
				{Path: "/upload-assignment", Label: "Upload Assignment"},
				{Path: "/assignments", Label: "My Assignments"},
				{Path: "/chat", Label: "Chat with Writer"},
				{Path: "/notifications", Label: "Notifications"},
			},
		},
		{
			Role: domainauth.RoleAdmin,
			Home: "/admin-dashboard",
			Allowed: []MenuItem{
				{Path: "/admin-dashboard", Label: "Dashboard"},
				{Path: "/submissions", Label: "New Submissions"},
				{Path: "/admin-assignments", Label: "Assignments"},
				{Path: "/writers", Label: "Writers"},
				{Path: "/chats", Label: "Chat Monitor"},
				{Path: "/paysheets", Label: "Paysheets"},
			},
		},
		{
			Role: domainauth.RoleWriter,
			Home: "/writer-dashboard",
			Allowed: []MenuItem{
				{Path: "/writer-dashboard", Label: "Dashboard"},
				{Path: "/writer-assignments", Label: "My Assignments"},
				{Path: "/writer-chat", Label: "Chat with Client"},
				{Path: "/writer-notifications", Label: "Notifications"},
				{Path: "/paysheet", Label: "My Paysheet"},
			},
		},
	}
}

// DefaultPolicy returns the built-in policy. It panics if the built-in table is inconsistent.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultRows())
	if err != nil {
		panic("access: default policy invalid: " + err.Error()) //nolint:forbidigo // built-in table is a programming error
	}
	return p
}

// NewPolicy validates rows and builds a policy.
// Every role of the enumeration needs a row, and every home must be in its own allowed set.
func NewPolicy(rows []RoleRow) (*Policy, error) {
	p := &Policy{
		rows:     make(map[domainauth.Role]RoleRow, len(rows)),
		required: make(map[string][]domainauth.Role),
	}
	for _, row := range rows {
		if !row.Role.Valid() {
			return nil, fmt.Errorf("policy row: %w", domainauth.ErrInvalidRole)
		}
		if _, dup := p.rows[row.Role]; dup {
			return nil, fmt.Errorf("policy: duplicate row for role %q", row.Role)
		}
		row.Allowed = slices.Clone(row.Allowed)
		p.rows[row.Role] = row
		for _, item := range row.Allowed {
			p.required[item.Path] = append(p.required[item.Path], row.Role)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate asserts the table invariants.
func (p *Policy) Validate() error {
	var errs []error
	for _, role := range domainauth.Roles() {
		row, ok := p.rows[role]
		if !ok {
			errs = append(errs, fmt.Errorf("policy: role %q has no row", role))
			continue
		}
		if row.Home == "" {
			errs = append(errs, fmt.Errorf("policy: role %q has no home path", role))
		}
		if len(row.Allowed) == 0 {
			errs = append(errs, fmt.Errorf("policy: role %q has no allowed paths", role))
		}
		found := false
		for _, item := range row.Allowed {
			if !strings.HasPrefix(item.Path, "/") {
				errs = append(errs, fmt.Errorf("policy: role %q path %q must start with /", role, item.Path))
			}
			if isPublic(item.Path) {
				errs = append(errs, fmt.Errorf("policy: role %q lists public path %q", role, item.Path))
			}
			if item.Path == row.Home {
				found = true
			}
		}
		if row.Home != "" && !found {
			errs = append(errs, fmt.Errorf("policy: role %q cannot reach its home %q", role, row.Home))
		}
	}
	return errors.Join(errs...)
}

// RoleHome returns the landing path for a role. Unknown roles land on the public landing page.
func (p *Policy) RoleHome(role domainauth.Role) string {
	if row, ok := p.rows[role]; ok {
		return row.Home
	}
	return PathLanding
}

// RoleAllowedPaths returns the paths a role may view.
func (p *Policy) RoleAllowedPaths(role domainauth.Role) []string {
	row, ok := p.rows[role]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(row.Allowed))
	for _, item := range row.Allowed {
		out = append(out, item.Path)
	}
	return out
}

// Menu returns the navigation entries of a role.
func (p *Policy) Menu(role domainauth.Role) []MenuItem {
	return slices.Clone(p.rows[role].Allowed)
}

// RequiredRoles returns the roles allowed on a protected path, or nil for paths the table does not list.
func (p *Policy) RequiredRoles(path string) []domainauth.Role {
	return slices.Clone(p.required[path])
}

// Allows reports whether role may view path. Public and unlisted paths are allowed to everyone.
func (p *Policy) Allows(role domainauth.Role, path string) bool {
	req := p.required[path]
	return len(req) == 0 || slices.Contains(req, role)
}

// Label returns the menu label of a protected path, taken from the first role that lists it.
func (p *Policy) Label(path string) string {
	for _, row := range p.Rows() {
		for _, item := range row.Allowed {
			if item.Path == path {
				return item.Label
			}
		}
	}
	return ""
}

// ProtectedPaths returns every path listed by any role, sorted.
func (p *Policy) ProtectedPaths() []string {
	out := make([]string, 0, len(p.required))
	for path := range p.required {
		out = append(out, path)
	}
	slices.Sort(out)
	return out
}

// Rows returns the table in enumeration order.
func (p *Policy) Rows() []RoleRow {
	out := make([]RoleRow, 0, len(p.rows))
	for _, role := range domainauth.Roles() {
		if row, ok := p.rows[role]; ok {
			row.Allowed = slices.Clone(row.Allowed)
			out = append(out, row)
		}
	}
	return out
}

func isPublic(path string) bool {
	switch path {
	case PathLanding, PathLogin, PathRegister, PathDashboard:
		return true
	default:
		return false
	}
}
