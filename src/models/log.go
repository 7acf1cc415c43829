package models

import "time"

// LogAction identifies a session lifecycle event in the audit trail.
type LogAction string

const (
	LogStarted    LogAction = "started"
	LogReleased   LogAction = "released"
	LogExpired    LogAction = "expired"
	LogTerminated LogAction = "terminated"
	LogExtended   LogAction = "extended"
)

// SessionLog is one append-only audit record. Actor is the user id of
// whoever caused the event, or "system" for expiry.
type SessionLog struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	ResourceID string    `json:"resource_id"`
	UserID     string    `json:"user_id"`
	Action     LogAction `json:"action"`
	Actor      string    `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
}
