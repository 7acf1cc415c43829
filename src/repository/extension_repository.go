package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"access-coordinator/src/db"
	"access-coordinator/src/models"
)

const extensionColumns = `request_id, session_id, resource_id, user_id, user_email,
       requested_minutes, status, requested_at, processed_by, processed_at, approved_minutes`

// ExtensionRepository handles all database operations for extension requests
type ExtensionRepository struct {
	db *db.DB
}

// NewExtensionRepository creates a new extension repository
func NewExtensionRepository(database *db.DB) *ExtensionRepository {
	return &ExtensionRepository{
		db: database,
	}
}

func scanExtension(row interface{ Scan(...any) error }) (*models.ExtensionRequest, error) {
	var (
		request         models.ExtensionRequest
		processedBy     sql.NullString
		approvedMinutes sql.NullInt64
	)
	err := row.Scan(
		&request.ID,
		&request.SessionID,
		&request.ResourceID,
		&request.UserID,
		&request.UserEmail,
		&request.RequestedMinutes,
		&request.Status,
		&request.RequestedAt,
		&processedBy,
		&request.ProcessedAt,
		&approvedMinutes,
	)
	if err != nil {
		return nil, err
	}
	request.ProcessedBy = processedBy.String
	request.ApprovedMinutes = int(approvedMinutes.Int64)
	return &request, nil
}

// Create inserts a pending request. The partial unique index on
// (session_id) WHERE status IN ('pending','approved') rejects a second open
// request for the same session.
func (r *ExtensionRepository) Create(ctx context.Context, request models.ExtensionRequest) (*models.ExtensionRequest, error) {
	query := `
		INSERT INTO extension_requests
		(request_id, session_id, resource_id, user_id, user_email, requested_minutes, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + extensionColumns

	created, err := scanExtension(r.db.GetConnection().QueryRowContext(
		ctx,
		query,
		request.ID,
		request.SessionID,
		request.ResourceID,
		request.UserID,
		request.UserEmail,
		request.RequestedMinutes,
		models.ExtensionPending,
		request.RequestedAt,
	))
	if isUniqueViolation(err) {
		return nil, models.ErrDuplicateRequest
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create extension request: %w", err)
	}

	slog.Info("Created extension request",
		"request_id", created.ID,
		"session_id", created.SessionID,
		"minutes", created.RequestedMinutes)

	return created, nil
}

// GetByID retrieves a request by its id.
func (r *ExtensionRepository) GetByID(ctx context.Context, requestID string) (*models.ExtensionRequest, error) {
	query := `
		SELECT ` + extensionColumns + `
		FROM extension_requests
		WHERE request_id = $1
	`

	request, err := scanExtension(r.db.GetConnection().QueryRowContext(ctx, query, requestID))
	if err == sql.ErrNoRows {
		return nil, models.ErrExtensionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get extension request: %w", err)
	}

	return request, nil
}

// Decide transitions a pending request to approved or rejected. The status
// guard makes a second decision on the same request a lost race.
func (r *ExtensionRepository) Decide(ctx context.Context, requestID string, status models.ExtensionStatus, processedBy string, processedAt time.Time, approvedMinutes int) (*models.ExtensionRequest, error) {
	query := `
		UPDATE extension_requests
		SET status = $2, processed_by = $3, processed_at = $4, approved_minutes = $5
		WHERE request_id = $1 AND status = $6
		RETURNING ` + extensionColumns

	request, err := scanExtension(r.db.GetConnection().QueryRowContext(
		ctx, query, requestID, status, processedBy, processedAt, approvedMinutes, models.ExtensionPending))
	if err == sql.ErrNoRows {
		return nil, models.ErrStaleWrite
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decide extension request: %w", err)
	}

	slog.Info("Decided extension request",
		"request_id", requestID,
		"status", status,
		"processed_by", processedBy)

	return request, nil
}

// Apply pushes the session deadline forward by the approved minutes and
// marks the request applied, in one transaction. The status guard on the
// approved-to-applied transition is the idempotence barrier: a request
// already applied leaves the deadline untouched no matter how many times
// the approval event is observed. The deadline mutation reads the stored
// end_time, never a value the caller cached.
func (r *ExtensionRepository) Apply(ctx context.Context, requestID string, minutes int) (*time.Time, bool, error) {
	var (
		newEndTime time.Time
		applied    bool
	)

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var sessionID string
		err := tx.QueryRowContext(ctx, `
			UPDATE extension_requests
			SET status = $2
			WHERE request_id = $1 AND status = $3
			RETURNING session_id
		`, requestID, models.ExtensionApplied, models.ExtensionApproved).Scan(&sessionID)
		if err == sql.ErrNoRows {
			// Already applied (or never approved): nothing to do.
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to mark extension request applied: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE sessions
			SET end_time = end_time + ($2 * interval '1 minute')
			WHERE session_id = $1 AND status = $3 AND end_time IS NOT NULL
			RETURNING end_time
		`, sessionID, minutes, models.SessionActive).Scan(&newEndTime)
		if err == sql.ErrNoRows {
			// Session ended before the approval landed; roll back so the
			// request stays approved rather than silently swallowed.
			return models.ErrSessionNotActive
		}
		if err != nil {
			return fmt.Errorf("failed to extend session deadline: %w", err)
		}

		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !applied {
		return nil, false, nil
	}

	slog.Info("Applied extension request",
		"request_id", requestID,
		"minutes", minutes,
		"end_time", newEndTime)

	return &newEndTime, true, nil
}

// ExtensionFilter narrows List results. Zero values mean no filter.
type ExtensionFilter struct {
	SessionID string
	UserID    string
	Status    models.ExtensionStatus
}

// List returns requests matching the filter, newest first.
func (r *ExtensionRepository) List(ctx context.Context, filter ExtensionFilter) ([]models.ExtensionRequest, error) {
	query := `
		SELECT ` + extensionColumns + `
		FROM extension_requests
		WHERE ($1 = '' OR session_id = $1)
		  AND ($2 = '' OR user_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY requested_at DESC
	`

	rows, err := r.db.GetConnection().QueryContext(ctx, query, filter.SessionID, filter.UserID, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to list extension requests: %w", err)
	}
	defer rows.Close()

	var requests []models.ExtensionRequest
	for rows.Next() {
		request, err := scanExtension(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan extension request row: %w", err)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate extension request rows: %w", err)
	}
	return requests, nil
}
