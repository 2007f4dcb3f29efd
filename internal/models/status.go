package models

import "slices"

// Transitions is a status transition table. A status missing from the table
// (or mapped to an empty slice) is terminal.
type Transitions[S comparable] map[S][]S

// Next returns the statuses reachable from s in one step.
func (t Transitions[S]) Next(s S) []S {
	return slices.Clone(t[s])
}

// Allowed reports whether moving from one status to another is in the table.
func (t Transitions[S]) Allowed(from, to S) bool {
	return slices.Contains(t[from], to)
}

// Role is the role of the viewer. It only drives which controls a view offers;
// the backend is the sole authorization boundary.
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole maps an arbitrary claim value to a role, defaulting to student.
func ParseRole(v string) Role {
	switch Role(v) {
	case RoleAdmin, RoleSuperAdmin:
		return Role(v)
	default:
		return RoleStudent
	}
}

// IsStaff reports whether the role may see admin controls.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}
