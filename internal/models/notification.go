package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationNewApplication         NotificationType = "new_application"
	NotificationApplicationPending     NotificationType = "application_pending"
	NotificationApplicationShortlisted NotificationType = "application_shortlisted"
	NotificationApplicationAccepted    NotificationType = "application_accepted"
	NotificationApplicationRejected    NotificationType = "application_rejected"
	NotificationNewComment             NotificationType = "new_comment"
	NotificationProjectLiked           NotificationType = "project_liked"
	NotificationProjectStatusChanged   NotificationType = "project_status_changed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

type EntityType string

const (
	EntityProject     EntityType = "project"
	EntityApplication EntityType = "application"
	EntityComment     EntityType = "comment"
)

type Notification struct {
	ID         uuid.UUID        `json:"id"`
	UserID     uuid.UUID        `json:"userId"`
	Type       NotificationType `json:"type"`
	Message    string           `json:"message"`
	Read       bool             `json:"read"`
	ReadAt     *time.Time       `json:"readAt,omitempty"`
	EntityID   *uuid.UUID       `json:"entityId,omitempty"`
	EntityType EntityType       `json:"entityType,omitempty"`
	Metadata   json.RawMessage  `json:"metadata,omitempty"`
	Priority   Priority         `json:"priority"`
	CreatedAt  time.Time        `json:"createdAt"`
}
