package database

import (
	"context"
	"database/sql"
	"fmt"

	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
)

const notificationColumns = `id, user_id, type, message, read, read_at, entity_id, entity_type,
	metadata, priority, created_at`

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n        models.Notification
		readAt   sql.NullTime
		entityID uuid.NullUUID
		typ      string
		entity   string
		priority string
		metadata []byte
	)
	if err := row.Scan(&n.ID, &n.UserID, &typ, &n.Message, &n.Read, &readAt, &entityID,
		&entity, &metadata, &priority, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = models.NotificationType(typ)
	n.EntityType = models.EntityType(entity)
	n.Priority = models.Priority(priority)
	n.Metadata = metadata
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	if entityID.Valid {
		n.EntityID = &entityID.UUID
	}
	return &n, nil
}

func (c *Client) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (c *Client) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read", userID).Scan(&n)
	return n, err
}

// MarkNotificationRead only touches notifications owned by userID; anything
// else reports sql.ErrNoRows.
func (c *Client) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	return scanNotification(c.db.QueryRowContext(ctx, `
		UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns, id, userID))
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		"UPDATE notifications SET read = TRUE, read_at = NOW() WHERE user_id = $1 AND NOT read", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *Client) DeleteNotification(ctx context.Context, id, userID uuid.UUID) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

const activityColumns = "id, user_id, type, project_id, comment_id, target_user_id, metadata, created_at"

func scanActivities(rows *sql.Rows) ([]models.Activity, error) {
	defer rows.Close()

	out := []models.Activity{}
	for rows.Next() {
		var (
			a                       models.Activity
			typ                     string
			project, comment, target uuid.NullUUID
			metadata                []byte
		)
		if err := rows.Scan(&a.ID, &a.UserID, &typ, &project, &comment, &target, &metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Type = models.ActivityType(typ)
		a.Metadata = metadata
		if project.Valid {
			a.ProjectID = &project.UUID
		}
		if comment.Valid {
			a.CommentID = &comment.UUID
		}
		if target.Valid {
			a.TargetUserID = &target.UUID
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (c *Client) ListActivitiesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Activity, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+activityColumns+`
		FROM activities WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return scanActivities(rows)
}

func (c *Client) ListActivitiesByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.Activity, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+activityColumns+`
		FROM activities WHERE project_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return scanActivities(rows)
}
