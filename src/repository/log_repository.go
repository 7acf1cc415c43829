package repository

import (
	"context"
	"fmt"

	"access-coordinator/src/db"
	"access-coordinator/src/models"
)

// LogRepository handles the append-only session audit trail.
type LogRepository struct {
	db *db.DB
}

// NewLogRepository creates a new log repository
func NewLogRepository(database *db.DB) *LogRepository {
	return &LogRepository{
		db: database,
	}
}

// Append writes one audit record.
func (r *LogRepository) Append(ctx context.Context, log models.SessionLog) error {
	query := `
		INSERT INTO session_logs
		(log_id, session_id, resource_id, user_id, action, actor, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.GetConnection().ExecContext(
		ctx,
		query,
		log.ID,
		log.SessionID,
		log.ResourceID,
		log.UserID,
		log.Action,
		log.Actor,
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append session log: %w", err)
	}
	return nil
}

// List returns the newest audit records, most recent first.
func (r *LogRepository) List(ctx context.Context, limit int) ([]models.SessionLog, error) {
	query := `
		SELECT log_id, session_id, resource_id, user_id, action, actor, timestamp
		FROM session_logs
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := r.db.GetConnection().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list session logs: %w", err)
	}
	defer rows.Close()

	var logs []models.SessionLog
	for rows.Next() {
		var log models.SessionLog
		err := rows.Scan(
			&log.ID,
			&log.SessionID,
			&log.ResourceID,
			&log.UserID,
			&log.Action,
			&log.Actor,
			&log.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session log row: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session log rows: %w", err)
	}
	return logs, nil
}
