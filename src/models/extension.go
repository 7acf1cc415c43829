package models

import "time"

// ExtensionStatus tracks an extension request through its lifecycle.
// Approval and the side-effecting deadline mutation are separate states so
// that observing an approval twice cannot extend the session twice.
type ExtensionStatus string

const (
	ExtensionPending  ExtensionStatus = "pending"
	ExtensionApproved ExtensionStatus = "approved"
	ExtensionRejected ExtensionStatus = "rejected"
	ExtensionApplied  ExtensionStatus = "applied"
)

// ExtensionRequest is a bounded-session holder's request for more time.
type ExtensionRequest struct {
	ID               string          `json:"id"`
	SessionID        string          `json:"session_id"`
	ResourceID       string          `json:"resource_id"`
	UserID           string          `json:"user_id"`
	UserEmail        string          `json:"user_email"`
	RequestedMinutes int             `json:"requested_minutes"`
	Status           ExtensionStatus `json:"status"`
	RequestedAt      time.Time       `json:"requested_at"`
	ProcessedBy      string          `json:"processed_by,omitempty"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	ApprovedMinutes  int             `json:"approved_minutes,omitempty"`
}

// Open reports whether the request still blocks a new one for the same
// session: pending, or approved but not yet applied.
func (r *ExtensionRequest) Open() bool {
	return r.Status == ExtensionPending || r.Status == ExtensionApproved
}
