package database

import (
	"fmt"
	"strings"

	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// projectColumns is the projection shared by every project query. viewerArg
// is the placeholder holding the viewing user, or "" for anonymous reads.
func projectColumns(viewerArg string) string {
	liked, saved := "FALSE", "FALSE"
	if viewerArg != "" {
		liked = fmt.Sprintf("EXISTS (SELECT 1 FROM project_likes vl WHERE vl.project_id = p.id AND vl.user_id = %s)", viewerArg)
		saved = fmt.Sprintf("EXISTS (SELECT 1 FROM project_saves vs WHERE vs.project_id = p.id AND vs.user_id = %s)", viewerArg)
	}
	return `p.id, p.client_id, p.title, p.description, p.budget, p.deadline, p.category,
		p.skills, p.status, p.visibility, p.attachments, p.views, p.shares,
		p.application_count, p.assigned_freelancer, p.featured_until, p.created_at, p.updated_at,
		(SELECT COUNT(*) FROM project_likes l WHERE l.project_id = p.id),
		(SELECT COUNT(*) FROM project_saves s WHERE s.project_id = p.id),
		` + liked + `, ` + saved
}

var feedOrder = map[models.ProjectSort]string{
	models.SortNewest:     "p.created_at DESC",
	models.SortBudgetHigh: "p.budget DESC, p.created_at DESC",
	models.SortBudgetLow:  "p.budget ASC, p.created_at DESC",
	models.SortDeadline:   "p.deadline ASC NULLS LAST, p.created_at DESC",
	models.SortViews:      "p.views DESC, p.created_at DESC",
}

// FeedQuery is the SQL for one page of the open-project feed.
type FeedQuery struct {
	CountSQL  string
	CountArgs []interface{}
	ListSQL   string
	ListArgs  []interface{}
}

// BuildFeedQuery turns a normalized filter into count and list statements.
// Both share the WHERE clause; the list adds ordering and paging.
func BuildFeedQuery(f models.ProjectFilter) FeedQuery {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds, "p.status = "+arg(string(models.ProjectOpen)))
	conds = append(conds, "p.visibility = "+arg(string(models.VisibilityPublic)))
	if f.Category != "" {
		conds = append(conds, "p.category = "+arg(f.Category))
	}
	if len(f.Skills) > 0 {
		conds = append(conds, "p.skills && "+arg(pq.Array(f.Skills)))
	}
	if f.MinBudget != nil {
		conds = append(conds, "p.budget >= "+arg(*f.MinBudget))
	}
	if f.MaxBudget != nil {
		conds = append(conds, "p.budget <= "+arg(*f.MaxBudget))
	}

	where := strings.Join(conds, " AND ")
	countArgs := append([]interface{}(nil), args...)

	viewerArg := ""
	if f.Viewer != uuid.Nil {
		viewerArg = arg(f.Viewer)
	}

	order, ok := feedOrder[f.Sort]
	if !ok {
		order = feedOrder[models.SortNewest]
	}

	limitArg := arg(f.Limit)
	offsetArg := arg(f.Offset())

	return FeedQuery{
		CountSQL:  "SELECT COUNT(*) FROM projects p WHERE " + where,
		CountArgs: countArgs,
		ListSQL: "SELECT " + projectColumns(viewerArg) + " FROM projects p WHERE " + where +
			" ORDER BY " + order + " LIMIT " + limitArg + " OFFSET " + offsetArg,
		ListArgs: args,
	}
}
