package models

type CreateProjectResponse struct {
	ProjectID string `json:"projectId"`
}

type CreateApplicationResponse struct {
	ApplicationID string `json:"applicationId"`
}

type LikeResponse struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

type SaveResponse struct {
	Saved     bool  `json:"saved"`
	SaveCount int64 `json:"saveCount"`
}

type ShareResponse struct {
	Shares int64 `json:"shares"`
}

type ViewResponse struct {
	Views int64 `json:"views"`
}

type CommentLikeResponse struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
