// Package realtime fans notification events out to connected clients.
package realtime

import (
	"context"
	"fmt"

	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
)

const EventNotificationCreated = "notification_created"

// Publisher pushes an event to a channel. Delivery is best-effort; the
// stored notification remains the source of truth.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload map[string]interface{}) error
}

// Message is the envelope written to a channel.
type Message struct {
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
}

func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s", userID.String())
}

func ProjectChannel(projectID uuid.UUID) string {
	return fmt.Sprintf("project:%s", projectID.String())
}

// PublishNotification sends n to its recipient's channel.
func PublishNotification(ctx context.Context, p Publisher, n *models.Notification) error {
	return p.Publish(ctx, UserChannel(n.UserID), EventNotificationCreated, NotificationPayload(n))
}

func NotificationPayload(n *models.Notification) map[string]interface{} {
	payload := map[string]interface{}{
		"id":        n.ID.String(),
		"type":      string(n.Type),
		"message":   n.Message,
		"priority":  string(n.Priority),
		"createdAt": n.CreatedAt,
	}
	if n.EntityID != nil {
		payload["entityId"] = n.EntityID.String()
		payload["entityType"] = string(n.EntityType)
	}
	return payload
}

// Noop drops every event. Used when no Redis is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, map[string]interface{}) error {
	return nil
}
