// internal/domain/models/roles.go
package models

import "strings"

// Role is the access level of a user within the company.
type Role string

const (
	RoleUser           Role = "USER"
	RoleApprover       Role = "APPROVER"
	RoleAdmin          Role = "ADMIN"
	RoleProductionHead Role = "PRODUCTION_HEAD"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleUser, RoleApprover, RoleProductionHead, RoleAdmin}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleUser, RoleApprover, RoleAdmin, RoleProductionHead:
		return r, true
	}
	return "", false
}

// CanReview reports whether the role carries standing approval authority.
// Temporary delegates are checked separately against their delegation.
func (r Role) CanReview() bool {
	return r == RoleApprover || r == RoleProductionHead || r == RoleAdmin
}
