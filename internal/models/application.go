package models

import (
	"time"

	"github.com/google/uuid"
)

type Application struct {
	ID                uuid.UUID         `json:"id"`
	ProjectID         uuid.UUID         `json:"projectId"`
	FreelancerID      uuid.UUID         `json:"freelancerId"`
	CoverLetter       string            `json:"coverLetter"`
	ProposedBudget    float64           `json:"proposedBudget"`
	EstimatedDuration string            `json:"estimatedDuration,omitempty"`
	Attachments       Attachments       `json:"attachments"`
	Status            ApplicationStatus `json:"status"`
	ClientNotes       string            `json:"clientNotes,omitempty"`
	IsArchived        bool              `json:"isArchived"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`

	Project *ProjectSummary `json:"project,omitempty"`
}

// ApplicationInput carries the form fields of a submission.
type ApplicationInput struct {
	CoverLetter       string
	ProposedBudget    *float64
	EstimatedDuration string
}
