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

const sessionColumns = `session_id, resource_id, user_id, user_email, user_role,
       kind, status, start_time, end_time, ended_at, end_reason`

// SessionRepository handles all database operations for sessions
type SessionRepository struct {
	db *db.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(database *db.DB) *SessionRepository {
	return &SessionRepository{
		db: database,
	}
}

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var (
		session   models.Session
		endReason sql.NullString
	)
	err := row.Scan(
		&session.ID,
		&session.ResourceID,
		&session.UserID,
		&session.UserEmail,
		&session.Role,
		&session.Kind,
		&session.Status,
		&session.StartTime,
		&session.EndTime,
		&session.EndedAt,
		&endReason,
	)
	if err != nil {
		return nil, err
	}
	session.EndReason = models.EndReason(endReason.String)
	return &session, nil
}

// GetActiveSession retrieves the active session for a resource, or nil when
// the resource is free.
func (r *SessionRepository) GetActiveSession(ctx context.Context, resourceID string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE resource_id = $1 AND status = $2
		LIMIT 1
	`

	session, err := scanSession(r.db.GetConnection().QueryRowContext(ctx, query, resourceID, models.SessionActive))
	if err == sql.ErrNoRows {
		// No active session - the resource is free, not an error
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	return session, nil
}

// GetSessionByID retrieves a session by its id.
func (r *SessionRepository) GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE session_id = $1
	`

	session, err := scanSession(r.db.GetConnection().QueryRowContext(ctx, query, sessionID))
	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// CreateActiveSession inserts a new active session. The partial unique index
// on (resource_id) WHERE status='active' makes this a compare-and-swap:
// when another admission won the race the insert fails and ErrStaleWrite is
// returned so the caller can retry its logical operation.
func (r *SessionRepository) CreateActiveSession(ctx context.Context, session models.Session) (*models.Session, error) {
	created, err := insertSession(ctx, r.db.GetConnection(), session)
	if err != nil {
		return nil, err
	}

	slog.Info("Created active session",
		"session_id", created.ID,
		"resource_id", created.ResourceID,
		"user_id", created.UserID,
		"kind", created.Kind)

	return created, nil
}

func insertSession(ctx context.Context, q querier, session models.Session) (*models.Session, error) {
	query := `
		INSERT INTO sessions
		(session_id, resource_id, user_id, user_email, user_role, kind, status, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + sessionColumns

	created, err := scanSession(q.QueryRowContext(
		ctx,
		query,
		session.ID,
		session.ResourceID,
		session.UserID,
		session.UserEmail,
		session.Role,
		session.Kind,
		models.SessionActive,
		session.StartTime,
		session.EndTime,
	))
	if isUniqueViolation(err) {
		return nil, models.ErrStaleWrite
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return created, nil
}

// EndSession marks a session ended with the given reason. The status guard
// in the WHERE clause makes the transition fire exactly once: when expiry
// and a manual termination race, the loser sees ErrSessionNotActive and
// must not advance the queue.
func (r *SessionRepository) EndSession(ctx context.Context, sessionID string, reason models.EndReason, endedAt time.Time) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $2, ended_at = $3, end_reason = $4
		WHERE session_id = $1 AND status = $5
		RETURNING ` + sessionColumns

	session, err := scanSession(r.db.GetConnection().QueryRowContext(
		ctx, query, sessionID, models.SessionEnded, endedAt, reason, models.SessionActive))
	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	slog.Info("Ended session",
		"session_id", sessionID,
		"resource_id", session.ResourceID,
		"reason", reason)

	return session, nil
}

// ListSessions returns current and past sessions for a resource, newest
// first. A nil status returns everything.
func (r *SessionRepository) ListSessions(ctx context.Context, resourceID string, status *models.SessionStatus) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE resource_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY start_time DESC
	`

	var statusArg any
	if status != nil {
		statusArg = string(*status)
	}

	rows, err := r.db.GetConnection().QueryContext(ctx, query, resourceID, statusArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// ListActiveBounded returns every active session that carries a deadline.
// The expiry scheduler calls this on startup to rebuild its timers from the
// persisted end times.
func (r *SessionRepository) ListActiveBounded(ctx context.Context) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status = $1 AND kind = $2
	`

	rows, err := r.db.GetConnection().QueryContext(ctx, query, models.SessionActive, models.KindBounded)
	if err != nil {
		return nil, fmt.Errorf("failed to list active bounded sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

func collectSessions(rows *sql.Rows) ([]models.Session, error) {
	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return sessions, nil
}
