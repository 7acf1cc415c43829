package models

import "time"

// NotificationKind identifies what a notification informs the user about.
type NotificationKind string

const (
	NotifySessionStarted    NotificationKind = "session_started"
	NotifySessionTerminated NotificationKind = "session_terminated"
	NotifyExtensionApplied  NotificationKind = "extension_applied"
	NotifyPriorityWaiting   NotificationKind = "priority_waiting"
)

// Notification is a fire-and-forget message targeted at one user. The
// stored row is the source of truth for "already handled": acknowledging
// deletes it, and a duplicate acknowledgement is a no-op.
type Notification struct {
	ID           string            `json:"id"`
	TargetUserID string            `json:"target_user_id"`
	ResourceID   string            `json:"resource_id"`
	Kind         NotificationKind  `json:"kind"`
	Payload      map[string]string `json:"payload,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
