package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityLike    ActivityType = "like"
	ActivityComment ActivityType = "comment"
	ActivityShare   ActivityType = "share"
	ActivitySave    ActivityType = "save"
	ActivityApply   ActivityType = "apply"
	ActivityPost    ActivityType = "post"
)

// Activity is an append-only engagement record.
type Activity struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"userId"`
	Type         ActivityType    `json:"type"`
	ProjectID    *uuid.UUID      `json:"projectId,omitempty"`
	CommentID    *uuid.UUID      `json:"commentId,omitempty"`
	TargetUserID *uuid.UUID      `json:"targetUserId,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}
