package database

import (
	"context"
	"database/sql"
	"fmt"

	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
)

const commentColumns = `c.id, c.project_id, c.user_id, c.content, c.parent_id, c.is_hidden, c.created_at,
	(SELECT COUNT(*) FROM comment_likes cl WHERE cl.comment_id = c.id)`

func scanComment(row rowScanner) (*models.Comment, error) {
	var (
		cm     models.Comment
		parent uuid.NullUUID
	)
	if err := row.Scan(&cm.ID, &cm.ProjectID, &cm.UserID, &cm.Content, &parent,
		&cm.IsHidden, &cm.CreatedAt, &cm.LikeCount); err != nil {
		return nil, err
	}
	if parent.Valid {
		cm.ParentID = &parent.UUID
	}
	return &cm, nil
}

func (c *Client) CreateComment(ctx context.Context, cm *models.Comment, events []models.Event) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO comments (id, project_id, user_id, content, parent_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`, cm.ID, cm.ProjectID, cm.UserID, cm.Content, nullUUID(cm.ParentID)).Scan(&cm.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return insertEvents(ctx, tx, events)
	})
}

func (c *Client) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	return scanComment(c.db.QueryRowContext(ctx, "SELECT "+commentColumns+" FROM comments c WHERE c.id = $1", id))
}

// ListComments returns a project's comments newest first.
func (c *Client) ListComments(ctx context.Context, projectID uuid.UUID, includeHidden bool, limit, offset int) ([]models.Comment, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+commentColumns+`
		FROM comments c
		WHERE c.project_id = $1 AND ($2 OR NOT c.is_hidden)
		ORDER BY c.created_at DESC
		LIMIT $3 OFFSET $4`, projectID, includeHidden, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		cm, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *cm)
	}
	return comments, rows.Err()
}

func (c *Client) ToggleCommentLike(ctx context.Context, commentID, userID uuid.UUID) (bool, int64, error) {
	return c.toggle(ctx, "comment_likes", "comment_id", commentID, userID, nil)
}

func (c *Client) SetCommentHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	res, err := c.db.ExecContext(ctx, "UPDATE comments SET is_hidden = $2 WHERE id = $1", id, hidden)
	if err != nil {
		return err
	}
	return requireRow(res)
}
