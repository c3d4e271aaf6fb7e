package models

import (
	"math"

	"freelance-marketplace-backend/internal/errs"

	"github.com/google/uuid"
)

type ProjectSort string

const (
	SortNewest     ProjectSort = "newest"
	SortBudgetHigh ProjectSort = "budget_high"
	SortBudgetLow  ProjectSort = "budget_low"
	SortDeadline   ProjectSort = "deadline"
	SortViews      ProjectSort = "views"
	SortPopular    ProjectSort = "popular"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50

	// MaxPage bounds page numbers so offsets stay well inside int range.
	MaxPage = 10_000
)

// ProjectFilter selects a page of the open-project feed.
type ProjectFilter struct {
	Category  string
	Skills    []string
	MinBudget *float64
	MaxBudget *float64
	Sort      ProjectSort
	Page      int
	Limit     int

	// Viewer, when set, fills LikedByMe and SavedByMe.
	Viewer uuid.UUID
}

// Normalize fills defaults and rejects contradictory budget bounds. Unknown
// sort keys fall back to newest first.
func (f *ProjectFilter) Normalize() error {
	f.Page = clampPage(f.Page)
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	switch f.Sort {
	case SortNewest, SortBudgetHigh, SortBudgetLow, SortDeadline, SortViews:
	case SortPopular:
		f.Sort = SortViews
	default:
		f.Sort = SortNewest
	}
	if !finite(f.MinBudget) {
		return errs.NewInvalidField("minBudget", "minBudget must be a number")
	}
	if !finite(f.MaxBudget) {
		return errs.NewInvalidField("maxBudget", "maxBudget must be a number")
	}
	if f.MinBudget != nil && f.MaxBudget != nil && *f.MinBudget > *f.MaxBudget {
		return errs.NewInvalidField("minBudget", "minBudget cannot exceed maxBudget")
	}
	return nil
}

func finite(v *float64) bool {
	return v == nil || !(math.IsNaN(*v) || math.IsInf(*v, 0))
}

func (f ProjectFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type ProjectPage struct {
	Projects []Project `json:"projects"`
	HasMore  bool      `json:"hasMore"`
	Total    int       `json:"total"`
}

// NewProjectPage computes hasMore as total > skip + returned.
func NewProjectPage(projects []Project, total int, f ProjectFilter) ProjectPage {
	if projects == nil {
		projects = []Project{}
	}
	return ProjectPage{
		Projects: projects,
		Total:    total,
		HasMore:  total > f.Offset()+len(projects),
	}
}

// Paging is the page/limit pair used by the secondary listings.
type Paging struct {
	Page  int
	Limit int
}

func (p Paging) Normalize() Paging {
	p.Page = clampPage(p.Page)
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

func (p Paging) Offset() int {
	return (p.Page - 1) * p.Limit
}

func clampPage(page int) int {
	switch {
	case page < 1:
		return 1
	case page > MaxPage:
		return MaxPage
	}
	return page
}
