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

const queueColumns = `entry_id, resource_id, user_id, user_email, user_role, joined_at`

// QueueRepository handles all database operations for waiting lists. The
// hierarchy is injected so head selection uses the configured role ordering
// instead of an inline priority map.
type QueueRepository struct {
	db        *db.DB
	hierarchy *models.RoleHierarchy
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(database *db.DB, hierarchy *models.RoleHierarchy) *QueueRepository {
	return &QueueRepository{
		db:        database,
		hierarchy: hierarchy,
	}
}

func scanQueueEntry(row interface{ Scan(...any) error }) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := row.Scan(
		&entry.ID,
		&entry.ResourceID,
		&entry.UserID,
		&entry.UserEmail,
		&entry.Role,
		&entry.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Enqueue inserts a waiting-list entry. The unique index on
// (resource_id, user_id) rejects a second join by the same user.
func (r *QueueRepository) Enqueue(ctx context.Context, entry models.QueueEntry) (*models.QueueEntry, error) {
	query := `
		INSERT INTO queue_entries
		(entry_id, resource_id, user_id, user_email, user_role, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + queueColumns

	created, err := scanQueueEntry(r.db.GetConnection().QueryRowContext(
		ctx,
		query,
		entry.ID,
		entry.ResourceID,
		entry.UserID,
		entry.UserEmail,
		entry.Role,
		entry.JoinedAt,
	))
	if isUniqueViolation(err) {
		return nil, models.ErrAlreadyQueued
	}
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue: %w", err)
	}

	slog.Info("Enqueued user",
		"entry_id", created.ID,
		"resource_id", created.ResourceID,
		"user_id", created.UserID)

	return created, nil
}

// GetEntry retrieves the entry for a (resource, user) pair, or nil when the
// user is not queued.
func (r *QueueRepository) GetEntry(ctx context.Context, resourceID, userID string) (*models.QueueEntry, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM queue_entries
		WHERE resource_id = $1 AND user_id = $2
	`

	entry, err := scanQueueEntry(r.db.GetConnection().QueryRowContext(ctx, query, resourceID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}

	return entry, nil
}

// GetEntryByID retrieves an entry by its id.
func (r *QueueRepository) GetEntryByID(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM queue_entries
		WHERE entry_id = $1
	`

	entry, err := scanQueueEntry(r.db.GetConnection().QueryRowContext(ctx, query, entryID))
	if err == sql.ErrNoRows {
		return nil, models.ErrQueueEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}

	return entry, nil
}

// List returns a resource's waiting list sorted by role priority then
// arrival time.
func (r *QueueRepository) List(ctx context.Context, resourceID string) ([]models.QueueEntry, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM queue_entries
		WHERE resource_id = $1
		ORDER BY joined_at ASC
	`

	rows, err := r.db.GetConnection().QueryContext(ctx, query, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue entries: %w", err)
	}
	defer rows.Close()

	entries, err := collectQueueEntries(rows)
	if err != nil {
		return nil, err
	}

	models.SortEntries(entries, r.hierarchy)
	return entries, nil
}

// Remove deletes an entry (user withdraw or admin removal).
func (r *QueueRepository) Remove(ctx context.Context, entryID string) error {
	result, err := r.db.GetConnection().ExecContext(ctx,
		`DELETE FROM queue_entries WHERE entry_id = $1`, entryID)
	if err != nil {
		return fmt.Errorf("failed to remove queue entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrQueueEntryNotFound
	}

	slog.Info("Removed queue entry", "entry_id", entryID)
	return nil
}

// PinToFront rewrites an entry's joined_at to an earlier instant so it sorts
// ahead of every same-priority waiter. This is an explicit admin override,
// not part of normal ordering.
func (r *QueueRepository) PinToFront(ctx context.Context, entryID string, pinnedAt time.Time) error {
	result, err := r.db.GetConnection().ExecContext(ctx,
		`UPDATE queue_entries SET joined_at = $2 WHERE entry_id = $1`, entryID, pinnedAt)
	if err != nil {
		return fmt.Errorf("failed to pin queue entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrQueueEntryNotFound
	}

	slog.Info("Pinned queue entry to front", "entry_id", entryID, "joined_at", pinnedAt)
	return nil
}

// PopAndPromote atomically removes the head of a resource's queue and
// creates a session for it. Head selection, removal and session creation
// run in one transaction: the queue rows are locked first, so a concurrent
// advancement for the same resource serializes behind this one instead of
// promoting the same waiter twice. Returns (nil, nil) when the queue is
// empty.
func (r *QueueRepository) PopAndPromote(ctx context.Context, resourceID string, build func(models.QueueEntry) models.Session) (*models.Session, error) {
	var promoted *models.Session

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT `+queueColumns+`
			FROM queue_entries
			WHERE resource_id = $1
			ORDER BY joined_at ASC
			FOR UPDATE
		`, resourceID)
		if err != nil {
			return fmt.Errorf("failed to lock queue: %w", err)
		}
		entries, err := collectQueueEntries(rows)
		rows.Close()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		models.SortEntries(entries, r.hierarchy)
		head := entries[0]

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM queue_entries WHERE entry_id = $1`, head.ID); err != nil {
			return fmt.Errorf("failed to pop queue head: %w", err)
		}

		session, err := insertSession(ctx, tx, build(head))
		if err != nil {
			return err
		}
		promoted = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	if promoted != nil {
		slog.Info("Promoted queue head",
			"resource_id", resourceID,
			"session_id", promoted.ID,
			"user_id", promoted.UserID)
	}
	return promoted, nil
}

func collectQueueEntries(rows *sql.Rows) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry row: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue entry rows: %w", err)
	}
	return entries, nil
}
