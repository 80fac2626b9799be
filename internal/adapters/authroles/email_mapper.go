package authroles

import (
	"strings"

	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
)

// EmailRoleMapper derives a role from markers in an account e-mail.
// Matching is a case-sensitive substring test; the admin marker wins over the writer marker.
type EmailRoleMapper struct {
	AdminMarker  string
	WriterMarker string
}

// DefaultEmailRoleMapper uses the "admin" and "writer" markers.
func DefaultEmailRoleMapper() EmailRoleMapper {
	return EmailRoleMapper{AdminMarker: "admin", WriterMarker: "writer"}
}

func (m EmailRoleMapper) Map(email string) domainauth.Role {
	if strings.Contains(email, m.marker(m.AdminMarker, "admin")) {
		return domainauth.RoleAdmin
	}
	if strings.Contains(email, m.marker(m.WriterMarker, "writer")) {
		return domainauth.RoleWriter
	}
	return domainauth.RoleClient
}

func (EmailRoleMapper) marker(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
