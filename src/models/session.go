package models

import "time"

// SessionKind distinguishes time-bounded sessions from open-ended ones.
type SessionKind string

const (
	KindBounded   SessionKind = "bounded"
	KindUnbounded SessionKind = "unbounded"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// EndReason records why a session left the active state.
type EndReason string

const (
	ReasonReleased   EndReason = "released"
	ReasonExpired    EndReason = "expired"
	ReasonTerminated EndReason = "terminated"
)

// Session represents exclusive control of a resource by one user. At most
// one active session exists per resource at any instant; the session store
// enforces this with a partial unique index.
type Session struct {
	ID         string        `json:"id"`
	ResourceID string        `json:"resource_id"`
	UserID     string        `json:"user_id"`
	UserEmail  string        `json:"user_email"`
	Role       Role          `json:"role"`
	Kind       SessionKind   `json:"kind"`
	Status     SessionStatus `json:"status"`
	StartTime  time.Time     `json:"start_time"`
	// EndTime is the hard deadline for bounded sessions; nil for unbounded.
	EndTime   *time.Time `json:"end_time,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	EndReason EndReason  `json:"end_reason,omitempty"`
}

// IsActive reports whether the session still holds the resource.
func (s *Session) IsActive() bool {
	return s.Status == SessionActive
}

// Remaining returns the time left until the deadline. It is derived from
// EndTime rather than from locally counted elapsed time, so reconnecting
// clients and restarted processes recompute the same value. Zero for
// unbounded or already-expired sessions.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.EndTime == nil {
		return 0
	}
	remaining := s.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
