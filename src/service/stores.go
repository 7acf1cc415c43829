package service

import (
	"context"
	"time"

	"access-coordinator/src/models"
	"access-coordinator/src/repository"
)

// The services depend on narrow store interfaces rather than concrete
// repositories so tests can substitute in-memory implementations with the
// same compare-and-swap semantics. The Postgres repositories satisfy them.

// SessionStore is the source of truth for who currently has control.
type SessionStore interface {
	GetActiveSession(ctx context.Context, resourceID string) (*models.Session, error)
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)
	// CreateActiveSession fails with models.ErrStaleWrite when another
	// active session exists for the resource.
	CreateActiveSession(ctx context.Context, session models.Session) (*models.Session, error)
	// EndSession fails with models.ErrSessionNotActive when the session
	// already ended; at most one caller observes the transition.
	EndSession(ctx context.Context, sessionID string, reason models.EndReason, endedAt time.Time) (*models.Session, error)
	ListSessions(ctx context.Context, resourceID string, status *models.SessionStatus) ([]models.Session, error)
	ListActiveBounded(ctx context.Context) ([]models.Session, error)
}

// QueueStore is the ordered waiting list per resource.
type QueueStore interface {
	// Enqueue fails with models.ErrAlreadyQueued for a duplicate
	// (resource, user) pair.
	Enqueue(ctx context.Context, entry models.QueueEntry) (*models.QueueEntry, error)
	GetEntry(ctx context.Context, resourceID, userID string) (*models.QueueEntry, error)
	GetEntryByID(ctx context.Context, entryID string) (*models.QueueEntry, error)
	List(ctx context.Context, resourceID string) ([]models.QueueEntry, error)
	Remove(ctx context.Context, entryID string) error
	PinToFront(ctx context.Context, entryID string, pinnedAt time.Time) error
	// PopAndPromote atomically removes the queue head and creates the
	// session returned by build for it. Returns (nil, nil) on an empty
	// queue and models.ErrStaleWrite when the resource was taken
	// concurrently.
	PopAndPromote(ctx context.Context, resourceID string, build func(models.QueueEntry) models.Session) (*models.Session, error)
}

// ExtensionStore holds extension requests.
type ExtensionStore interface {
	Create(ctx context.Context, request models.ExtensionRequest) (*models.ExtensionRequest, error)
	GetByID(ctx context.Context, requestID string) (*models.ExtensionRequest, error)
	Decide(ctx context.Context, requestID string, status models.ExtensionStatus, processedBy string, processedAt time.Time, approvedMinutes int) (*models.ExtensionRequest, error)
	// Apply atomically transitions approved to applied and pushes the
	// session deadline forward. applied is false when the request was
	// already applied, in which case the deadline is untouched.
	Apply(ctx context.Context, requestID string, minutes int) (newEndTime *time.Time, applied bool, err error)
	List(ctx context.Context, filter repository.ExtensionFilter) ([]models.ExtensionRequest, error)
}

// NotificationStore persists per-user notifications until consumed.
type NotificationStore interface {
	Create(ctx context.Context, notification models.Notification) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	Ack(ctx context.Context, notificationID, userID string) error
}

// LogStore is the append-only audit trail.
type LogStore interface {
	Append(ctx context.Context, log models.SessionLog) error
	List(ctx context.Context, limit int) ([]models.SessionLog, error)
}

// ResourceStore is the read-only registry of controllable resources.
type ResourceStore interface {
	GetResource(ctx context.Context, resourceID string) (*models.Resource, error)
	ListForRole(ctx context.Context, role models.Role) ([]models.Resource, error)
}
