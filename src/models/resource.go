package models

// Resource is a controllable project slot that only one user may drive at a
// time. The registry is read-only to the coordinator.
type Resource struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AllowedRoles []Role `json:"allowed_roles"`
}

// VisibleTo reports whether the given role may view and request this
// resource. An empty allow list means every role may.
func (r *Resource) VisibleTo(role Role) bool {
	if len(r.AllowedRoles) == 0 {
		return true
	}
	for _, allowed := range r.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}
