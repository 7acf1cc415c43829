package schemas

import "access-coordinator/src/models"

// SessionListResponse represents the sessions channel for one resource
type SessionListResponse struct {
	ResourceID string        `json:"resource_id"`
	Sessions   []SessionView `json:"sessions"`
}

// SessionView is a Session plus the server-computed remaining seconds, so
// clients derive countdowns from the persisted deadline instead of counting
// locally.
type SessionView struct {
	models.Session
	RemainingSeconds int `json:"remaining_seconds"`
}

// QueueListResponse represents the queue channel for one resource, already
// sorted by role priority then arrival.
type QueueListResponse struct {
	ResourceID string              `json:"resource_id"`
	Entries    []models.QueueEntry `json:"entries"`
}
