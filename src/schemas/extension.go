package schemas

// ExtensionCreateRequest represents the request body for asking for more time
type ExtensionCreateRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Minutes   int    `json:"minutes" binding:"required,gt=0"`
}

// ExtensionDecisionRequest represents an approve/reject decision on a
// pending extension request
type ExtensionDecisionRequest struct {
	Approve bool `json:"approve"`
}
