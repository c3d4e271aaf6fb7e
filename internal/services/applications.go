package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"strings"
	"time"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/logging"
	"freelance-marketplace-backend/internal/membership"
	"freelance-marketplace-backend/internal/models"
	"freelance-marketplace-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const msgAlreadyApplied = "You have already applied to this project"

// statusMessages picks the freelancer notification for a new application
// status. %s is the project title.
var statusMessages = map[models.ApplicationStatus]struct {
	kind     models.NotificationType
	format   string
	priority models.Priority
}{
	models.ApplicationPending: {
		models.NotificationApplicationPending,
		"Your application for %q is back under review", models.PriorityNormal,
	},
	models.ApplicationShortlisted: {
		models.NotificationApplicationShortlisted,
		"Your application for %q has been shortlisted", models.PriorityNormal,
	},
	models.ApplicationAccepted: {
		models.NotificationApplicationAccepted,
		"Congratulations! Your application for %q has been accepted", models.PriorityHigh,
	},
	models.ApplicationRejected: {
		models.NotificationApplicationRejected,
		"Your application for %q was not selected", models.PriorityNormal,
	},
}

type ApplicationService struct {
	store  ApplicationStore
	files  AttachmentStore
	now    func() time.Time
	logger zerolog.Logger
}

func NewApplicationService(store ApplicationStore, files AttachmentStore) *ApplicationService {
	return &ApplicationService{
		store:  store,
		files:  files,
		now:    time.Now,
		logger: logging.Component("applications"),
	}
}

// Submit files an application from freelancer. tier is the freelancer's
// membership tier and bounds the number of applications per month.
func (s *ApplicationService) Submit(ctx context.Context, projectID, freelancer uuid.UUID, tier string, in models.ApplicationInput, files []*multipart.FileHeader) (*models.Application, error) {
	coverLetter := strings.TrimSpace(in.CoverLetter)
	if coverLetter == "" {
		return nil, errs.NewMissingField("coverLetter", "Cover letter is required")
	}
	if in.ProposedBudget != nil {
		if err := validateAmount("proposedBudget", "Proposed budget", *in.ProposedBudget); err != nil {
			return nil, err
		}
	}

	p, err := s.store.GetProject(ctx, projectID, uuid.Nil)
	if err != nil {
		return nil, errs.FromDB(err, "Project", "")
	}
	if !visibleTo(p, freelancer) {
		return nil, errs.NewNotFound("Project")
	}
	if p.Status != models.ProjectOpen {
		return nil, errs.NewValidation("Project is not accepting applications")
	}
	if p.ClientID == freelancer {
		return nil, errs.NewForbidden("You cannot apply to your own project")
	}

	applied, err := s.store.HasApplied(ctx, projectID, freelancer)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, errs.NewConflict(msgAlreadyApplied)
	}

	used, err := s.store.CountApplicationsSince(ctx, freelancer, monthStart(s.now()))
	if err != nil {
		return nil, err
	}
	if !membership.Lookup(tier).CanBid(used) {
		return nil, errs.NewForbidden("Monthly bid limit reached")
	}

	attachments, err := s.files.SaveAll(ctx, storage.DirApplications, files)
	if err != nil {
		return nil, err
	}

	budget := p.Budget
	if in.ProposedBudget != nil {
		budget = *in.ProposedBudget
	}
	a := &models.Application{
		ID:                uuid.New(),
		ProjectID:         projectID,
		FreelancerID:      freelancer,
		CoverLetter:       coverLetter,
		ProposedBudget:    budget,
		EstimatedDuration: strings.TrimSpace(in.EstimatedDuration),
		Attachments:       attachments,
		Status:            models.ApplicationPending,
	}
	summary := p.Summary()
	a.Project = &summary

	events := []models.Event{
		models.NewNotificationEvent(models.Notification{
			UserID:     p.ClientID,
			Type:       models.NotificationNewApplication,
			Message:    fmt.Sprintf("New application received for your project: %s", p.Title),
			EntityID:   &a.ID,
			EntityType: models.EntityApplication,
			Metadata:   mustJSON(map[string]string{"projectId": p.ID.String()}),
		}),
		models.NewActivityEvent(models.Activity{
			UserID:       freelancer,
			Type:         models.ActivityApply,
			ProjectID:    &p.ID,
			TargetUserID: &p.ClientID,
		}),
	}

	if err := s.store.CreateApplication(ctx, a, events); err != nil {
		s.files.Remove(ctx, attachments)
		return nil, errs.FromDB(err, "Project", msgAlreadyApplied)
	}
	return a, nil
}

// ListForProject lists a project's applications, newest first, for its owner.
func (s *ApplicationService) ListForProject(ctx context.Context, projectID, requester uuid.UUID, includeArchived bool) ([]models.Application, error) {
	p, err := s.store.GetProject(ctx, projectID, uuid.Nil)
	if err != nil {
		return nil, errs.FromDB(err, "Project", "")
	}
	if p.ClientID != requester {
		return nil, errs.NewForbidden("Not authorized to view these applications")
	}
	return s.store.ListApplicationsForProject(ctx, projectID, includeArchived)
}

func (s *ApplicationService) ListMine(ctx context.Context, freelancer uuid.UUID) ([]models.Application, error) {
	return s.store.ListApplicationsByFreelancer(ctx, freelancer)
}

// SetStatus moves an application along models.ApplicationTransitions and
// notifies the freelancer once. Accepting assigns the freelancer to the
// project when it is still open. Repeating the current status only updates
// the notes.
func (s *ApplicationService) SetStatus(ctx context.Context, appID, requester uuid.UUID, status string, clientNotes *string) (*models.Application, error) {
	next := models.ApplicationStatus(status)
	if !next.Valid() {
		return nil, errs.NewInvalidField("status", "Invalid status")
	}

	a, err := s.store.GetApplication(ctx, appID)
	if err != nil {
		return nil, errs.FromDB(err, "Application", "")
	}
	if a.Project == nil || a.Project.ClientID != requester {
		return nil, errs.NewForbidden("Not authorized to update this application")
	}
	if !a.Status.CanTransitionTo(next) {
		return nil, errs.NewInvalidTransition(string(a.Status), string(next))
	}

	if clientNotes != nil {
		a.ClientNotes = strings.TrimSpace(*clientNotes)
	}

	var events []models.Event
	assign := false
	if next != a.Status {
		msg := statusMessages[next]
		events = append(events, models.NewNotificationEvent(models.Notification{
			UserID:     a.FreelancerID,
			Type:       msg.kind,
			Message:    fmt.Sprintf(msg.format, a.Project.Title),
			EntityID:   &a.ID,
			EntityType: models.EntityApplication,
			Metadata:   mustJSON(map[string]string{"projectId": a.ProjectID.String(), "status": string(next)}),
			Priority:   msg.priority,
		}))
		assign = next == models.ApplicationAccepted && a.Project.Status == models.ProjectOpen
	}
	prev := a.Status
	a.Status = next

	// The write is conditional on prev, so of two racing reviews only one
	// lands and notifies.
	if err := s.store.UpdateApplicationStatus(ctx, a, prev, assign, events); err != nil {
		return nil, errs.FromDB(err, "Application", "")
	}
	if assign {
		a.Project.Status = models.ProjectInProgress
	}
	return a, nil
}

func (s *ApplicationService) Archive(ctx context.Context, appID, requester uuid.UUID, archived bool) (*models.Application, error) {
	a, err := s.store.GetApplication(ctx, appID)
	if err != nil {
		return nil, errs.FromDB(err, "Application", "")
	}
	if a.Project == nil || a.Project.ClientID != requester {
		return nil, errs.NewForbidden("Not authorized to update this application")
	}
	if err := s.store.SetApplicationArchived(ctx, appID, archived); err != nil {
		return nil, errs.FromDB(err, "Application", "")
	}
	a.IsArchived = archived
	return a, nil
}

// GetByID is allowed for the applicant and the project's client.
func (s *ApplicationService) GetByID(ctx context.Context, appID, requester uuid.UUID) (*models.Application, error) {
	a, err := s.store.GetApplication(ctx, appID)
	if err != nil {
		return nil, errs.FromDB(err, "Application", "")
	}
	if a.FreelancerID != requester && (a.Project == nil || a.Project.ClientID != requester) {
		return nil, errs.NewForbidden("Not authorized to view this application")
	}
	return a, nil
}

// OpenAttachment returns an attachment's metadata and content. The caller
// closes the reader.
func (s *ApplicationService) OpenAttachment(ctx context.Context, appID uuid.UUID, filename string, requester uuid.UUID) (*models.Attachment, io.ReadCloser, error) {
	a, err := s.GetByID(ctx, appID, requester)
	if err != nil {
		return nil, nil, err
	}
	att, ok := a.Attachments.Find(filename)
	if !ok {
		return nil, nil, errs.NewNotFound("Attachment")
	}
	rc, err := s.files.Open(ctx, att.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, errs.NewNotFound("Attachment")
		}
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return &att, rc, nil
}

// BidUsage reports the freelancer's plan and applications sent this month.
func (s *ApplicationService) BidUsage(ctx context.Context, freelancer uuid.UUID, tier string) (membership.Usage, error) {
	used, err := s.store.CountApplicationsSince(ctx, freelancer, monthStart(s.now()))
	if err != nil {
		return membership.Usage{}, err
	}
	return membership.Lookup(tier).Usage(used), nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
