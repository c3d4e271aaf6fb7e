package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func (c *Client) CreateProject(ctx context.Context, p *models.Project, events []models.Event) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO projects (id, client_id, title, description, budget, deadline, category,
				skills, status, visibility, attachments)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at, updated_at
		`, p.ID, p.ClientID, p.Title, p.Description, p.Budget, nullTime(p.Deadline), p.Category,
			pq.Array(p.Skills), string(p.Status), string(p.Visibility), p.Attachments,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		return insertEvents(ctx, tx, events)
	})
}

// GetProject loads one project. viewer may be uuid.Nil.
func (c *Client) GetProject(ctx context.Context, id, viewer uuid.UUID) (*models.Project, error) {
	query := "SELECT " + projectColumns("$2") + " FROM projects p WHERE p.id = $1"
	return scanProject(c.db.QueryRowContext(ctx, query, id, viewer))
}

func (c *Client) ListProjects(ctx context.Context, f models.ProjectFilter) ([]models.Project, int, error) {
	q := BuildFeedQuery(f)

	var total int
	if err := c.db.QueryRowContext(ctx, q.CountSQL, q.CountArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, q.ListSQL, q.ListArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	projects, err := scanProjects(rows)
	if err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (c *Client) ListProjectsByClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT "+projectColumns("$1")+" FROM projects p WHERE p.client_id = $1 ORDER BY p.created_at DESC",
		clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list client projects: %w", err)
	}
	return scanProjects(rows)
}

func (c *Client) ListSavedProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+projectColumns("$1")+`
		FROM projects p
		JOIN project_saves ps ON ps.project_id = p.id AND ps.user_id = $1
		ORDER BY ps.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved projects: %w", err)
	}
	return scanProjects(rows)
}

// UpdateProject writes the editable fields and status of p, provided the
// stored status is still prev.
func (c *Client) UpdateProject(ctx context.Context, p *models.Project, prev models.ProjectStatus, events []models.Event) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE projects
			SET title = $2, description = $3, budget = $4, deadline = $5, category = $6,
				skills = $7, status = $8, visibility = $9, attachments = $10, updated_at = NOW()
			WHERE id = $1 AND status = $11
			RETURNING updated_at
		`, p.ID, p.Title, p.Description, p.Budget, nullTime(p.Deadline), p.Category,
			pq.Array(p.Skills), string(p.Status), string(p.Visibility), p.Attachments, string(prev),
		).Scan(&p.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrStaleWrite
		}
		if err != nil {
			return err
		}
		return insertEvents(ctx, tx, events)
	})
}

// DeleteProject removes the project. Applications, comments, likes and saves
// are removed by the foreign key cascades in the same statement.
func (c *Client) DeleteProject(ctx context.Context, id uuid.UUID) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireRow(res)
}

// ApplicationAttachments lists the attachment metadata of every application
// on a project, used to clean up files after a delete.
func (c *Client) ApplicationAttachments(ctx context.Context, projectID uuid.UUID) ([]models.Attachment, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT attachments FROM applications WHERE project_id = $1", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list application attachments: %w", err)
	}
	defer rows.Close()

	var out []models.Attachment
	for rows.Next() {
		var atts models.Attachments
		if err := rows.Scan(&atts); err != nil {
			return nil, err
		}
		out = append(out, atts...)
	}
	return out, rows.Err()
}

func (c *Client) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	var views int64
	err := c.db.QueryRowContext(ctx,
		"UPDATE projects SET views = views + 1 WHERE id = $1 RETURNING views", id,
	).Scan(&views)
	return views, err
}

func (c *Client) IncrementShares(ctx context.Context, id uuid.UUID, events []models.Event) (int64, error) {
	var shares int64
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			"UPDATE projects SET shares = shares + 1 WHERE id = $1 RETURNING shares", id,
		).Scan(&shares); err != nil {
			return err
		}
		return insertEvents(ctx, tx, events)
	})
	return shares, err
}

func (c *Client) ToggleLike(ctx context.Context, projectID, userID uuid.UUID, onAdd []models.Event) (bool, int64, error) {
	return c.toggle(ctx, "project_likes", "project_id", projectID, userID, onAdd)
}

func (c *Client) ToggleSave(ctx context.Context, projectID, userID uuid.UUID, onAdd []models.Event) (bool, int64, error) {
	return c.toggle(ctx, "project_saves", "project_id", projectID, userID, onAdd)
}

// toggle flips membership of (entity, user) in a join table and returns the
// new state and member count. onAdd events are only enqueued when the row
// was inserted.
func (c *Client) toggle(ctx context.Context, table, column string, entityID, userID uuid.UUID, onAdd []models.Event) (bool, int64, error) {
	var (
		added bool
		count int64
	)
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(
			"DELETE FROM %s WHERE %s = $1 AND user_id = $2", table, column), entityID, userID)
		if err != nil {
			return err
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}

		if removed == 0 {
			res, err := tx.ExecContext(ctx, fmt.Sprintf(
				"INSERT INTO %s (%s, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", table, column),
				entityID, userID)
			if err != nil {
				return err
			}
			// A concurrent toggle may have inserted the row first.
			inserted, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if inserted == 1 {
				added = true
				if err := insertEvents(ctx, tx, onAdd); err != nil {
					return err
				}
			}
		}

		return tx.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE %s = $1", table, column), entityID).Scan(&count)
	})
	return added, count, err
}
