package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
)

// claimLease is how long a dispatcher owns a claimed batch before another
// instance may pick the same events up again.
const claimLease = 2 * time.Minute

func insertEvents(ctx context.Context, tx *sql.Tx, events []models.Event) error {
	for _, e := range events {
		payload, err := e.Payload()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO outbox_events (id, kind, payload) VALUES ($1, $2, $3)",
			e.ID, string(e.Kind), payload,
		); err != nil {
			return fmt.Errorf("failed to enqueue %s event: %w", e.Kind, err)
		}
	}
	return nil
}

// PendingEvents claims up to limit undelivered events, oldest first. Rows
// locked by another transaction or still under lease are skipped.
func (c *Client) PendingEvents(ctx context.Context, limit, maxAttempts int) ([]models.Event, error) {
	rows, err := c.db.QueryContext(ctx, `
		UPDATE outbox_events SET locked_until = NOW() + $3 * INTERVAL '1 millisecond'
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE delivered_at IS NULL
				AND attempts < $2
				AND (locked_until IS NULL OR locked_until < NOW())
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload, attempts, last_error, created_at
	`, limit, maxAttempts, claimLease.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var (
			id        uuid.UUID
			kind      string
			payload   []byte
			attempts  int
			lastError string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &kind, &payload, &attempts, &lastError, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		e, err := models.DecodeEvent(id, models.EventKind(kind), payload)
		if err != nil {
			// Undecodable payloads are kept so the failure shows up in last_error.
			e = models.Event{ID: id, Kind: models.EventKind(kind)}
			e.LastError = err.Error()
		} else {
			e.LastError = lastError
		}
		e.Attempts = attempts
		e.CreatedAt = createdAt
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING does not preserve the subquery order.
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

// MaterializeEvent writes the notification or activity an event carries.
// The record id is the event id, so a redelivery is a no-op.
func (c *Client) MaterializeEvent(ctx context.Context, e models.Event) (bool, error) {
	var (
		res sql.Result
		err error
	)
	switch e.Kind {
	case models.EventNotification:
		n := e.Notification
		if n == nil {
			return false, fmt.Errorf("notification event %s has no payload", e.ID)
		}
		res, err = c.db.ExecContext(ctx, `
			INSERT INTO notifications (id, user_id, type, message, entity_id, entity_type, metadata, priority, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`, e.ID, n.UserID, string(n.Type), n.Message, nullUUID(n.EntityID), string(n.EntityType),
			jsonOrEmpty(n.Metadata), string(n.Priority), createdAt(e))
	case models.EventActivity:
		a := e.Activity
		if a == nil {
			return false, fmt.Errorf("activity event %s has no payload", e.ID)
		}
		res, err = c.db.ExecContext(ctx, `
			INSERT INTO activities (id, user_id, type, project_id, comment_id, target_user_id, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, e.ID, a.UserID, string(a.Type), nullUUID(a.ProjectID), nullUUID(a.CommentID),
			nullUUID(a.TargetUserID), jsonOrEmpty(a.Metadata), createdAt(e))
	default:
		return false, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if err != nil {
		return false, fmt.Errorf("failed to materialize %s event: %w", e.Kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) MarkEventDelivered(ctx context.Context, id uuid.UUID) error {
	_, err := c.db.ExecContext(ctx,
		"UPDATE outbox_events SET delivered_at = NOW(), locked_until = NULL WHERE id = $1", id)
	return err
}

// MarkEventFailed records a failed attempt and releases the lease so the
// next tick can retry.
func (c *Client) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET attempts = attempts + 1, last_error = $2, locked_until = NULL
		WHERE id = $1
	`, id, reason)
	return err
}

// CountPendingEvents counts undelivered events that still have attempts
// left, claimed or not.
func (c *Client) CountPendingEvents(ctx context.Context, maxAttempts int) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM outbox_events WHERE delivered_at IS NULL AND attempts < $1",
		maxAttempts).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox events: %w", err)
	}
	return n, nil
}

// PurgeDeliveredEvents drops delivered events older than the cutoff.
func (c *Client) PurgeDeliveredEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM outbox_events WHERE delivered_at IS NOT NULL AND delivered_at < $1", before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func createdAt(e models.Event) time.Time {
	if e.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return e.CreatedAt
}
