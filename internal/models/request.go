package models

import "time"

// ProjectRequest is the body of create and update. Update treats nil fields
// as unchanged; create requires title, description, budget and category.
type ProjectRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Budget      *float64   `json:"budget"`
	Deadline    *time.Time `json:"deadline"`
	Category    *string    `json:"category"`
	Skills      []string   `json:"skills"`
	Status      *string    `json:"status"`
	Visibility  *string    `json:"visibility"`
}

func (r ProjectRequest) Input() ProjectInput {
	in := ProjectInput{Deadline: r.Deadline, Skills: r.Skills}
	if r.Title != nil {
		in.Title = *r.Title
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	if r.Budget != nil {
		in.Budget = *r.Budget
	}
	if r.Category != nil {
		in.Category = *r.Category
	}
	if r.Status != nil {
		in.Status = ProjectStatus(*r.Status)
	}
	if r.Visibility != nil {
		in.Visibility = Visibility(*r.Visibility)
	}
	return in
}

func (r ProjectRequest) Patch() ProjectPatch {
	patch := ProjectPatch{
		Title:       r.Title,
		Description: r.Description,
		Budget:      r.Budget,
		Deadline:    r.Deadline,
		Category:    r.Category,
		Skills:      r.Skills,
	}
	if r.Status != nil {
		s := ProjectStatus(*r.Status)
		patch.Status = &s
	}
	if r.Visibility != nil {
		v := Visibility(*r.Visibility)
		patch.Visibility = &v
	}
	return patch
}

type CommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parentId,omitempty"`
}

type StatusRequest struct {
	Status      string  `json:"status" binding:"required"`
	ClientNotes *string `json:"clientNotes,omitempty"`
}

type ArchiveRequest struct {
	Archived bool `json:"archived"`
}

type HideCommentRequest struct {
	Hidden bool `json:"hidden"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// ApplyRequest is the JSON form of an application; multipart submissions use
// the same field names.
type ApplyRequest struct {
	CoverLetter       string   `json:"coverLetter"`
	ProposedBudget    *float64 `json:"proposedBudget"`
	EstimatedDuration string   `json:"estimatedDuration"`
}

func (r ApplyRequest) Input() ApplicationInput {
	return ApplicationInput{
		CoverLetter:       r.CoverLetter,
		ProposedBudget:    r.ProposedBudget,
		EstimatedDuration: r.EstimatedDuration,
	}
}
