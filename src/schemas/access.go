package schemas

import "access-coordinator/src/models"

// AccessRequest represents the request body for requesting resource access
type AccessRequest struct {
	ResourceID string `json:"resource_id" binding:"required"`
}

// AccessOutcome tells the caller how the admission controller resolved the
// request: an immediate (or re-entered) session, or a queue position.
type AccessOutcome string

const (
	OutcomeGranted AccessOutcome = "granted"
	OutcomeQueued  AccessOutcome = "queued"
)

// AccessResponse represents the response for an access request
type AccessResponse struct {
	Outcome  AccessOutcome      `json:"outcome"`
	Session  *models.Session    `json:"session,omitempty"`
	Entry    *models.QueueEntry `json:"queue_entry,omitempty"`
	Position int                `json:"position,omitempty"`
}

// WithdrawRequest represents the request body for leaving a queue
type WithdrawRequest struct {
	ResourceID string `json:"resource_id" binding:"required"`
}

// MessageResponse is a generic acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}
