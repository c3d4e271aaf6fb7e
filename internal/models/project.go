package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxAmount is the largest value a NUMERIC(12, 2) money column holds.
const MaxAmount = 9_999_999_999.99

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

type Project struct {
	ID                 uuid.UUID     `json:"id"`
	ClientID           uuid.UUID     `json:"clientId"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Budget             float64       `json:"budget"`
	Deadline           *time.Time    `json:"deadline,omitempty"`
	Category           string        `json:"category"`
	Skills             []string      `json:"skills"`
	Status             ProjectStatus `json:"status"`
	Visibility         Visibility    `json:"visibility"`
	Attachments        Attachments   `json:"attachments"`
	Views              int64         `json:"views"`
	Shares             int64         `json:"shares"`
	LikeCount          int64         `json:"likeCount"`
	SaveCount          int64         `json:"saveCount"`
	LikedByMe          bool          `json:"likedByMe"`
	SavedByMe          bool          `json:"savedByMe"`
	ApplicationCount   int           `json:"applicationCount"`
	AssignedFreelancer *uuid.UUID    `json:"assignedFreelancer,omitempty"`
	FeaturedUntil      *time.Time    `json:"featuredUntil,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`

	// Populated by Get only.
	Comments []Comment `json:"comments,omitempty"`
}

// ProjectSummary is the slice of a project embedded in application listings.
type ProjectSummary struct {
	ID       uuid.UUID     `json:"id"`
	Title    string        `json:"title"`
	Budget   float64       `json:"budget"`
	Status   ProjectStatus `json:"status"`
	ClientID uuid.UUID     `json:"clientId"`
}

func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{ID: p.ID, Title: p.Title, Budget: p.Budget, Status: p.Status, ClientID: p.ClientID}
}

// ProjectInput carries the fields accepted when posting a project.
type ProjectInput struct {
	Title       string
	Description string
	Budget      float64
	Deadline    *time.Time
	Category    string
	Skills      []string
	Status      ProjectStatus
	Visibility  Visibility
}

// ProjectPatch holds the optional fields of an update; nil means unchanged.
type ProjectPatch struct {
	Title       *string
	Description *string
	Budget      *float64
	Deadline    *time.Time
	Category    *string
	Skills      []string
	Status      *ProjectStatus
	Visibility  *Visibility
}

// Apply writes the patch onto p. Status is left to the caller, which must
// check the transition policy first.
func (patch ProjectPatch) Apply(p *Project) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Budget != nil {
		p.Budget = *patch.Budget
	}
	if patch.Deadline != nil {
		p.Deadline = patch.Deadline
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Skills != nil {
		p.Skills = patch.Skills
	}
	if patch.Visibility != nil {
		p.Visibility = *patch.Visibility
	}
}

// Attachment is the metadata recorded for an uploaded file.
type Attachment struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Path         string `json:"path"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
}

// Attachments is stored as a JSONB column.
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *Attachments) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = Attachments{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported attachments type %T", src)
	}
	return json.Unmarshal(data, a)
}

// Find returns the attachment stored under filename.
func (a Attachments) Find(filename string) (Attachment, bool) {
	for _, att := range a {
		if att.Filename == filename {
			return att, true
		}
	}
	return Attachment{}, false
}
