package models

import "errors"

// Domain-level sentinel errors for business logic
// These errors should not contain HTTP-specific information

var (
	// ErrSessionNotFound indicates that a session with the given ID does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotActive indicates that the session has already ended
	ErrSessionNotActive = errors.New("session is not active")

	// ErrResourceNotFound indicates that the resource is not in the registry
	ErrResourceNotFound = errors.New("resource not found")

	// ErrAlreadyQueued indicates that the user already has a queue entry for the resource
	ErrAlreadyQueued = errors.New("user is already queued for this resource")

	// ErrQueueEntryNotFound indicates that the queue entry does not exist
	ErrQueueEntryNotFound = errors.New("queue entry not found")

	// ErrDuplicateRequest indicates that an open extension request already exists for the session
	ErrDuplicateRequest = errors.New("an open extension request already exists for this session")

	// ErrExtensionNotFound indicates that the extension request does not exist
	ErrExtensionNotFound = errors.New("extension request not found")

	// ErrNotSessionHolder indicates that the caller does not hold the session
	ErrNotSessionHolder = errors.New("caller is not the session holder")

	// ErrSessionNotBounded indicates that the session has no deadline to extend
	ErrSessionNotBounded = errors.New("session has no deadline to extend")

	// ErrPermissionDenied indicates that the caller's role does not allow the operation
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotificationNotFound indicates that the notification was already consumed or never existed
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrStaleWrite indicates that an atomic precondition failed: the caller
	// lost a race on the one-active-session-per-resource invariant and the
	// same logical operation must be retried
	ErrStaleWrite = errors.New("stale write: atomic precondition failed")
)
