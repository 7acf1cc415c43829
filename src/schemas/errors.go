package schemas

import (
	"errors"
	"fmt"
	"net/http"

	"access-coordinator/src/models"
)

// ErrorResponse represents a standard API error (RFC 7807).
// It implements the standard Go error interface.
type ErrorResponse struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"` // HTTP Status Code
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

// Error implements the error interface.
// This allows ErrorResponse to be returned as a standard Go error.
func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

// NewErrorResponse creates a general ErrorResponse.
func NewErrorResponse(status int, title, detail, instance string) *ErrorResponse {
	return &ErrorResponse{
		Type:     fmt.Sprintf("https://access-coordinator.com/errors/%d", status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// --- Helper Constructors for Common HTTP Errors ---

// NewBadRequestError creates a 400 Bad Request error.
func NewBadRequestError(detail, instance string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, "Bad Request", detail, instance)
}

// NewForbiddenError creates a 403 Forbidden error.
func NewForbiddenError(detail, instance string) *ErrorResponse {
	return NewErrorResponse(http.StatusForbidden, "Forbidden", detail, instance)
}

// NewNotFoundError creates a 404 Not Found error.
func NewNotFoundError(detail, instance string) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, "Not Found", detail, instance)
}

// NewConflictError creates a 409 Conflict error.
func NewConflictError(detail, instance string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, "Conflict", detail, instance)
}

// NewInternalError creates a 500 Internal Server Error.
// Note: Be careful not to expose sensitive technical details in production.
func NewInternalError(detail, instance string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, "Internal Server Error", detail, instance)
}

// --- Domain-Specific Error Constructors ---

// AlreadyQueuedError creates a 409 Conflict error for a duplicate queue join.
// The UI should offer withdraw instead of a second join.
func AlreadyQueuedError(detail, instance string) *ErrorResponse {
	return &ErrorResponse{
		Type:     "https://access-coordinator.com/already-queued",
		Title:    "Already Queued",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: instance,
	}
}

// StaleWriteError creates a 409 Conflict error reported only after the
// service has exhausted its transparent retries of the lost race.
func StaleWriteError(detail, instance string) *ErrorResponse {
	return &ErrorResponse{
		Type:     "https://access-coordinator.com/stale-write",
		Title:    "Concurrent Modification",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: instance,
	}
}

// FromDomainError translates a domain sentinel error into an RFC 7807
// response. Unknown errors become 500s.
func FromDomainError(err error, instance string) *ErrorResponse {
	switch {
	case errors.Is(err, models.ErrResourceNotFound),
		errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrQueueEntryNotFound),
		errors.Is(err, models.ErrExtensionNotFound),
		errors.Is(err, models.ErrNotificationNotFound):
		return NewNotFoundError(err.Error(), instance)
	case errors.Is(err, models.ErrAlreadyQueued):
		return AlreadyQueuedError(err.Error(), instance)
	case errors.Is(err, models.ErrDuplicateRequest),
		errors.Is(err, models.ErrSessionNotActive),
		errors.Is(err, models.ErrSessionNotBounded):
		return NewConflictError(err.Error(), instance)
	case errors.Is(err, models.ErrNotSessionHolder),
		errors.Is(err, models.ErrPermissionDenied):
		return NewForbiddenError(err.Error(), instance)
	case errors.Is(err, models.ErrStaleWrite):
		return StaleWriteError(err.Error(), instance)
	default:
		return NewInternalError(err.Error(), instance)
	}
}
