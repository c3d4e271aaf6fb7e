package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Client is the PostgreSQL-backed store for every marketplace entity.
type Client struct {
	db *sql.DB
}

// Open connects with lib/pq and verifies the connection.
func Open(ctx context.Context, connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

func NewClient(db *sql.DB) *Client {
	return &Client{db: db}
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.db.Close()
}

// withTx runs fn in a transaction and commits when it returns nil.
func (c *Client) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		p        models.Project
		deadline sql.NullTime
		featured sql.NullTime
		assigned uuid.NullUUID
		status   string
		vis      string
	)
	err := row.Scan(
		&p.ID, &p.ClientID, &p.Title, &p.Description, &p.Budget, &deadline, &p.Category,
		pq.Array(&p.Skills), &status, &vis, &p.Attachments, &p.Views, &p.Shares,
		&p.ApplicationCount, &assigned, &featured, &p.CreatedAt, &p.UpdatedAt,
		&p.LikeCount, &p.SaveCount, &p.LikedByMe, &p.SavedByMe,
	)
	if err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	p.Visibility = models.Visibility(vis)
	if deadline.Valid {
		p.Deadline = &deadline.Time
	}
	if featured.Valid {
		p.FeaturedUntil = &featured.Time
	}
	if assigned.Valid {
		p.AssignedFreelancer = &assigned.UUID
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return &p, nil
}

func scanProjects(rows *sql.Rows) ([]models.Project, error) {
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// jsonOrEmpty keeps JSONB columns non-null.
func jsonOrEmpty(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

// requireRow turns "no rows affected" into sql.ErrNoRows.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// requireUnchanged is requireRow for updates guarded by the status that was
// read; zero rows means another writer got there first.
func requireUnchanged(res sql.Result) error {
	if err := requireRow(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrStaleWrite
		}
		return err
	}
	return nil
}
