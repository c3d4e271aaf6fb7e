package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
)

const applicationColumns = `a.id, a.project_id, a.freelancer_id, a.cover_letter, a.proposed_budget,
	a.estimated_duration, a.attachments, a.status, a.client_notes, a.is_archived,
	a.created_at, a.updated_at,
	p.id, p.title, p.budget, p.status, p.client_id`

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		a             models.Application
		s             models.ProjectSummary
		status        string
		projectStatus string
	)
	err := row.Scan(
		&a.ID, &a.ProjectID, &a.FreelancerID, &a.CoverLetter, &a.ProposedBudget,
		&a.EstimatedDuration, &a.Attachments, &status, &a.ClientNotes, &a.IsArchived,
		&a.CreatedAt, &a.UpdatedAt,
		&s.ID, &s.Title, &s.Budget, &projectStatus, &s.ClientID,
	)
	if err != nil {
		return nil, err
	}
	a.Status = models.ApplicationStatus(status)
	s.Status = models.ProjectStatus(projectStatus)
	a.Project = &s
	return &a, nil
}

func scanApplications(rows *sql.Rows) ([]models.Application, error) {
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

// CreateApplication inserts the application, bumps the project's
// application count and enqueues events, all in one transaction. A second
// application for the same (project, freelancer) fails with the unique
// violation of applications_project_freelancer_key.
func (c *Client) CreateApplication(ctx context.Context, a *models.Application, events []models.Event) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO applications (id, project_id, freelancer_id, cover_letter, proposed_budget,
				estimated_duration, attachments, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`, a.ID, a.ProjectID, a.FreelancerID, a.CoverLetter, a.ProposedBudget,
			a.EstimatedDuration, a.Attachments, string(a.Status),
		).Scan(&a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE projects SET application_count = application_count + 1 WHERE id = $1",
			a.ProjectID); err != nil {
			return fmt.Errorf("failed to bump application count: %w", err)
		}

		return insertEvents(ctx, tx, events)
	})
}

func (c *Client) HasApplied(ctx context.Context, projectID, freelancerID uuid.UUID) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM applications WHERE project_id = $1 AND freelancer_id = $2)",
		projectID, freelancerID,
	).Scan(&exists)
	return exists, err
}

func (c *Client) CountApplicationsSince(ctx context.Context, freelancerID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applications WHERE freelancer_id = $1 AND created_at >= $2",
		freelancerID, since,
	).Scan(&n)
	return n, err
}

func (c *Client) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return scanApplication(c.db.QueryRowContext(ctx, "SELECT "+applicationColumns+`
		FROM applications a JOIN projects p ON p.id = a.project_id
		WHERE a.id = $1`, id))
}

func (c *Client) ListApplicationsForProject(ctx context.Context, projectID uuid.UUID, includeArchived bool) ([]models.Application, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+applicationColumns+`
		FROM applications a JOIN projects p ON p.id = a.project_id
		WHERE a.project_id = $1 AND ($2 OR NOT a.is_archived)
		ORDER BY a.created_at DESC`, projectID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list project applications: %w", err)
	}
	return scanApplications(rows)
}

func (c *Client) ListApplicationsByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Application, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+applicationColumns+`
		FROM applications a JOIN projects p ON p.id = a.project_id
		WHERE a.freelancer_id = $1
		ORDER BY a.created_at DESC`, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list freelancer applications: %w", err)
	}
	return scanApplications(rows)
}

// UpdateApplicationStatus stores the new status and notes, provided the row
// still holds prev. When assign is true and the project is still open, the
// project moves to in_progress with the applicant assigned.
func (c *Client) UpdateApplicationStatus(ctx context.Context, a *models.Application, prev models.ApplicationStatus, assign bool, events []models.Event) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE applications SET status = $2, client_notes = $3, updated_at = NOW()
			WHERE id = $1 AND status = $4
		`, a.ID, string(a.Status), a.ClientNotes, string(prev))
		if err != nil {
			return err
		}
		if err := requireUnchanged(res); err != nil {
			return err
		}

		if assign {
			if _, err := tx.ExecContext(ctx, `
				UPDATE projects SET status = 'in_progress', assigned_freelancer = $2, updated_at = NOW()
				WHERE id = $1 AND status = 'open'
			`, a.ProjectID, a.FreelancerID); err != nil {
				return fmt.Errorf("failed to assign freelancer: %w", err)
			}
		}

		return insertEvents(ctx, tx, events)
	})
}

func (c *Client) SetApplicationArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	res, err := c.db.ExecContext(ctx,
		"UPDATE applications SET is_archived = $2, updated_at = NOW() WHERE id = $1", id, archived)
	if err != nil {
		return err
	}
	return requireRow(res)
}
