package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"access-coordinator/src/events"
	"access-coordinator/src/models"
	"access-coordinator/src/rabbitmq"
)

// Notifier delivers fire-and-forget messages to specific users. Every
// notification is persisted first; the RabbitMQ fanout and the change bus
// are push hints for connected clients, and failures on either are logged
// rather than returned because delivery is not a fatal path.
type Notifier struct {
	store     NotificationStore
	publisher rabbitmq.Publisher
	bus       *events.Bus
}

// NewNotifier creates a new notifier. publisher may be nil when RabbitMQ is
// not configured (tests).
func NewNotifier(store NotificationStore, publisher rabbitmq.Publisher, bus *events.Bus) *Notifier {
	return &Notifier{
		store:     store,
		publisher: publisher,
		bus:       bus,
	}
}

// Notify persists and pushes one notification.
func (n *Notifier) Notify(ctx context.Context, targetUserID, resourceID string, kind models.NotificationKind, payload map[string]string) error {
	notification := models.Notification{
		ID:           uuid.New().String(),
		TargetUserID: targetUserID,
		ResourceID:   resourceID,
		Kind:         kind,
		Payload:      payload,
		CreatedAt:    time.Now(),
	}

	created, err := n.store.Create(ctx, notification)
	if err != nil {
		return err
	}

	n.bus.Publish(events.Change{
		Channel:      events.ChannelNotifications,
		Op:           events.OpAdded,
		ResourceID:   resourceID,
		TargetUserID: targetUserID,
		Record:       created,
	})

	if n.publisher != nil {
		body, err := json.Marshal(created)
		if err == nil {
			err = n.publisher.Publish(rabbitmq.NotificationsExchange, body)
		}
		if err != nil {
			slog.Warn("Failed to push notification to RabbitMQ",
				"notification_id", created.ID,
				"error", err)
		}
	}

	return nil
}

// ListForUser returns the user's pending notifications.
func (n *Notifier) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return n.store.ListForUser(ctx, userID)
}

// Ack consumes a notification on behalf of its target user. The deletion is
// the single source of "already handled": a duplicate ack reports
// models.ErrNotificationNotFound and the client treats it as done.
func (n *Notifier) Ack(ctx context.Context, notificationID, userID string) error {
	if err := n.store.Ack(ctx, notificationID, userID); err != nil {
		return err
	}

	n.bus.Publish(events.Change{
		Channel:      events.ChannelNotifications,
		Op:           events.OpRemoved,
		TargetUserID: userID,
		Record:       map[string]string{"id": notificationID},
	})
	return nil
}
