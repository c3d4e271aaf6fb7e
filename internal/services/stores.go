package services

import (
	"context"
	"io"
	"mime/multipart"
	"time"

	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
)

// The store interfaces below are satisfied by *database.Client.

type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project, events []models.Event) error
	GetProject(ctx context.Context, id, viewer uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, f models.ProjectFilter) ([]models.Project, int, error)
	ListProjectsByClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error)
	ListSavedProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	// UpdateProject returns errs.ErrStaleWrite when the stored status is no
	// longer prev.
	UpdateProject(ctx context.Context, p *models.Project, prev models.ProjectStatus, events []models.Event) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	ApplicationAttachments(ctx context.Context, projectID uuid.UUID) ([]models.Attachment, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (int64, error)
	IncrementShares(ctx context.Context, id uuid.UUID, events []models.Event) (int64, error)
	ToggleLike(ctx context.Context, projectID, userID uuid.UUID, onAdd []models.Event) (bool, int64, error)
	ToggleSave(ctx context.Context, projectID, userID uuid.UUID, onAdd []models.Event) (bool, int64, error)

	CreateComment(ctx context.Context, cm *models.Comment, events []models.Event) error
	GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListComments(ctx context.Context, projectID uuid.UUID, includeHidden bool, limit, offset int) ([]models.Comment, error)
	ToggleCommentLike(ctx context.Context, commentID, userID uuid.UUID) (bool, int64, error)
	SetCommentHidden(ctx context.Context, id uuid.UUID, hidden bool) error
}

type ApplicationStore interface {
	GetProject(ctx context.Context, id, viewer uuid.UUID) (*models.Project, error)
	CreateApplication(ctx context.Context, a *models.Application, events []models.Event) error
	HasApplied(ctx context.Context, projectID, freelancerID uuid.UUID) (bool, error)
	CountApplicationsSince(ctx context.Context, freelancerID uuid.UUID, since time.Time) (int, error)
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListApplicationsForProject(ctx context.Context, projectID uuid.UUID, includeArchived bool) ([]models.Application, error)
	ListApplicationsByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Application, error)
	// UpdateApplicationStatus returns errs.ErrStaleWrite when the stored
	// status is no longer prev.
	UpdateApplicationStatus(ctx context.Context, a *models.Application, prev models.ApplicationStatus, assign bool, events []models.Event) error
	SetApplicationArchived(ctx context.Context, id uuid.UUID, archived bool) error
}

type NotificationStore interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteNotification(ctx context.Context, id, userID uuid.UUID) error
}

type ActivityStore interface {
	ListActivitiesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Activity, error)
	ListActivitiesByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.Activity, error)
}

type OutboxStore interface {
	PendingEvents(ctx context.Context, limit, maxAttempts int) ([]models.Event, error)
	CountPendingEvents(ctx context.Context, maxAttempts int) (int, error)
	MaterializeEvent(ctx context.Context, e models.Event) (bool, error)
	MarkEventDelivered(ctx context.Context, id uuid.UUID) error
	MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error
	PurgeDeliveredEvents(ctx context.Context, before time.Time) (int64, error)
}

// AttachmentStore is satisfied by *storage.Store.
type AttachmentStore interface {
	SaveAll(ctx context.Context, dir string, files []*multipart.FileHeader) ([]models.Attachment, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, attachments []models.Attachment) error
}
