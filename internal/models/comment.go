package models

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID        uuid.UUID  `json:"id"`
	ProjectID uuid.UUID  `json:"projectId"`
	UserID    uuid.UUID  `json:"userId"`
	Content   string     `json:"content"`
	ParentID  *uuid.UUID `json:"parentId,omitempty"`
	LikeCount int64      `json:"likeCount"`
	IsHidden  bool       `json:"isHidden"`
	CreatedAt time.Time  `json:"createdAt"`
}
