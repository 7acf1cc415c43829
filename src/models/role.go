package models

// Role represents a user's access level. The role set and its ordering are
// configuration, not hard-coded business fact; these constants only name the
// defaults used when ROLE_PRIORITY is not set.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
	RoleGuest      Role = "guest"
)

// RoleHierarchy holds the role-to-priority mapping. A lower ordinal means a
// higher priority. It is built once from configuration and injected into
// every component that consults it (admission, queue ordering, termination
// permission checks).
type RoleHierarchy struct {
	priority   map[Role]int
	privileged map[Role]bool
	bounded    map[Role]bool
	ordered    []Role
}

// NewRoleHierarchy builds a hierarchy from an ordered role list (highest
// priority first), the set of privileged roles and the set of roles whose
// sessions are time-bounded.
func NewRoleHierarchy(ordered []Role, privileged []Role, bounded []Role) *RoleHierarchy {
	h := &RoleHierarchy{
		priority:   make(map[Role]int, len(ordered)),
		privileged: make(map[Role]bool, len(privileged)),
		bounded:    make(map[Role]bool, len(bounded)),
		ordered:    ordered,
	}
	for i, role := range ordered {
		h.priority[role] = i
	}
	for _, role := range privileged {
		h.privileged[role] = true
	}
	for _, role := range bounded {
		h.bounded[role] = true
	}
	return h
}

// Priority returns the ordinal of a role. Unknown roles sort after every
// configured role.
func (h *RoleHierarchy) Priority(role Role) int {
	if p, ok := h.priority[role]; ok {
		return p
	}
	return len(h.ordered)
}

// Known reports whether the role is part of the configured hierarchy.
func (h *RoleHierarchy) Known(role Role) bool {
	_, ok := h.priority[role]
	return ok
}

// IsPrivileged reports whether the role may terminate sessions, decide
// extension requests and manage queues.
func (h *RoleHierarchy) IsPrivileged(role Role) bool {
	return h.privileged[role]
}

// IsBounded reports whether sessions for this role carry a hard deadline.
func (h *RoleHierarchy) IsBounded(role Role) bool {
	return h.bounded[role]
}

// Outranks reports whether role a has strictly higher priority than role b.
func (h *RoleHierarchy) Outranks(a, b Role) bool {
	return h.Priority(a) < h.Priority(b)
}

// RanksAtLeast reports whether role a has priority greater than or equal to
// role b.
func (h *RoleHierarchy) RanksAtLeast(a, b Role) bool {
	return h.Priority(a) <= h.Priority(b)
}

// Roles returns the configured roles, highest priority first.
func (h *RoleHierarchy) Roles() []Role {
	return h.ordered
}
