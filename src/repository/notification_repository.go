package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"access-coordinator/src/db"
	"access-coordinator/src/models"
)

// NotificationRepository handles all database operations for notifications.
// The stored row is the single source of "already handled": acknowledging
// deletes it, so duplicate deliveries cannot cause duplicate side effects
// on the client.
type NotificationRepository struct {
	db *db.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(database *db.DB) *NotificationRepository {
	return &NotificationRepository{
		db: database,
	}
}

// Create persists a notification for its target user.
func (r *NotificationRepository) Create(ctx context.Context, notification models.Notification) (*models.Notification, error) {
	payload, err := json.Marshal(notification.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification payload: %w", err)
	}

	query := `
		INSERT INTO notifications
		(notification_id, target_user_id, resource_id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.GetConnection().ExecContext(
		ctx,
		query,
		notification.ID,
		notification.TargetUserID,
		notification.ResourceID,
		notification.Kind,
		payload,
		notification.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	slog.Info("Created notification",
		"notification_id", notification.ID,
		"target_user_id", notification.TargetUserID,
		"kind", notification.Kind)

	return &notification, nil
}

// ListForUser returns the user's pending notifications, oldest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	query := `
		SELECT notification_id, target_user_id, resource_id, kind, payload, created_at
		FROM notifications
		WHERE target_user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.GetConnection().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var (
			notification models.Notification
			payload      []byte
		)
		err := rows.Scan(
			&notification.ID,
			&notification.TargetUserID,
			&notification.ResourceID,
			&notification.Kind,
			&payload,
			&notification.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &notification.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode notification payload: %w", err)
			}
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification rows: %w", err)
	}
	return notifications, nil
}

// Ack deletes a notification on behalf of its target user. A repeat ack
// finds no row and reports ErrNotificationNotFound; callers treat that as
// "already handled".
func (r *NotificationRepository) Ack(ctx context.Context, notificationID, userID string) error {
	result, err := r.db.GetConnection().ExecContext(ctx, `
		DELETE FROM notifications
		WHERE notification_id = $1 AND target_user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to ack notification: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotificationNotFound
	}

	slog.Info("Acknowledged notification", "notification_id", notificationID, "user_id", userID)
	return nil
}
