package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"strings"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/logging"
	"freelance-marketplace-backend/internal/models"
	"freelance-marketplace-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	latestComments   = 5
	maxCommentLength = 2000
	maxTitleLength   = 200
)

type ProjectService struct {
	store  ProjectStore
	files  AttachmentStore
	logger zerolog.Logger
}

func NewProjectService(store ProjectStore, files AttachmentStore) *ProjectService {
	return &ProjectService{
		store:  store,
		files:  files,
		logger: logging.Component("projects"),
	}
}

// List returns one page of the open-project feed.
func (s *ProjectService) List(ctx context.Context, f models.ProjectFilter) (*models.ProjectPage, error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	projects, total, err := s.store.ListProjects(ctx, f)
	if err != nil {
		return nil, err
	}
	page := models.NewProjectPage(projects, total, f)
	return &page, nil
}

// Get loads a project with its latest comments. Drafts and private projects
// are only visible to their owner. Get never changes the view counter.
func (s *ProjectService) Get(ctx context.Context, id, viewer uuid.UUID) (*models.Project, error) {
	p, err := s.store.GetProject(ctx, id, viewer)
	if err != nil {
		return nil, errs.FromDB(err, "Project", "")
	}
	if !visibleTo(p, viewer) {
		return nil, errs.NewNotFound("Project")
	}

	comments, err := s.store.ListComments(ctx, id, p.ClientID == viewer, latestComments, 0)
	if err != nil {
		return nil, err
	}
	p.Comments = comments
	return p, nil
}

// RecordView counts one view by viewer. Projects viewer cannot see are not
// found and not counted.
func (s *ProjectService) RecordView(ctx context.Context, id, viewer uuid.UUID) (int64, error) {
	if _, err := s.visibleProject(ctx, id, viewer); err != nil {
		return 0, err
	}
	views, err := s.store.IncrementViews(ctx, id)
	if err != nil {
		return 0, errs.FromDB(err, "Project", "")
	}
	return views, nil
}

// Like toggles user's like. Activity and the owner notification are only
// produced when the like is added.
func (s *ProjectService) Like(ctx context.Context, id, user uuid.UUID) (bool, int64, error) {
	p, err := s.visibleProject(ctx, id, user)
	if err != nil {
		return false, 0, err
	}

	onAdd := []models.Event{models.NewActivityEvent(models.Activity{
		UserID:       user,
		Type:         models.ActivityLike,
		ProjectID:    &p.ID,
		TargetUserID: &p.ClientID,
	})}
	if user != p.ClientID {
		onAdd = append(onAdd, models.NewNotificationEvent(models.Notification{
			UserID:     p.ClientID,
			Type:       models.NotificationProjectLiked,
			Message:    fmt.Sprintf("Someone liked your project: %s", p.Title),
			EntityID:   &p.ID,
			EntityType: models.EntityProject,
			Priority:   models.PriorityLow,
		}))
	}

	liked, count, err := s.store.ToggleLike(ctx, id, user, onAdd)
	if err != nil {
		return false, 0, errs.FromDB(err, "Project", "")
	}
	return liked, count, nil
}

func (s *ProjectService) Save(ctx context.Context, id, user uuid.UUID) (bool, int64, error) {
	p, err := s.visibleProject(ctx, id, user)
	if err != nil {
		return false, 0, err
	}

	onAdd := []models.Event{models.NewActivityEvent(models.Activity{
		UserID:       user,
		Type:         models.ActivitySave,
		ProjectID:    &p.ID,
		TargetUserID: &p.ClientID,
	})}
	saved, count, err := s.store.ToggleSave(ctx, id, user, onAdd)
	if err != nil {
		return false, 0, errs.FromDB(err, "Project", "")
	}
	return saved, count, nil
}

// Share counts every call; it is not a toggle.
func (s *ProjectService) Share(ctx context.Context, id, user uuid.UUID) (int64, error) {
	if _, err := s.visibleProject(ctx, id, user); err != nil {
		return 0, err
	}
	events := []models.Event{models.NewActivityEvent(models.Activity{
		UserID:    user,
		Type:      models.ActivityShare,
		ProjectID: &id,
	})}
	shares, err := s.store.IncrementShares(ctx, id, events)
	if err != nil {
		return 0, errs.FromDB(err, "Project", "")
	}
	return shares, nil
}

func (s *ProjectService) Comment(ctx context.Context, projectID, user uuid.UUID, content string, parentID *uuid.UUID) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.NewMissingField("content", "Comment content is required")
	}
	if len([]rune(content)) > maxCommentLength {
		return nil, errs.NewInvalidField("content", fmt.Sprintf("Comment cannot exceed %d characters", maxCommentLength))
	}

	p, err := s.visibleProject(ctx, projectID, user)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.store.GetComment(ctx, *parentID)
		if err != nil {
			return nil, errs.FromDB(err, "Parent comment", "")
		}
		if parent.ProjectID != projectID {
			return nil, errs.NewInvalidField("parentId", "Parent comment belongs to another project")
		}
	}

	cm := &models.Comment{
		ID:        uuid.New(),
		ProjectID: projectID,
		UserID:    user,
		Content:   content,
		ParentID:  parentID,
	}

	events := []models.Event{models.NewActivityEvent(models.Activity{
		UserID:       user,
		Type:         models.ActivityComment,
		ProjectID:    &p.ID,
		CommentID:    &cm.ID,
		TargetUserID: &p.ClientID,
	})}
	if user != p.ClientID {
		events = append(events, models.NewNotificationEvent(models.Notification{
			UserID:     p.ClientID,
			Type:       models.NotificationNewComment,
			Message:    fmt.Sprintf("New comment on your project: %s", p.Title),
			EntityID:   &p.ID,
			EntityType: models.EntityProject,
			Metadata:   mustJSON(map[string]string{"commentId": cm.ID.String()}),
		}))
	}

	if err := s.store.CreateComment(ctx, cm, events); err != nil {
		return nil, err
	}
	return cm, nil
}

// ListComments returns comments newest first. Hidden comments are only
// listed for the project owner.
func (s *ProjectService) ListComments(ctx context.Context, projectID, viewer uuid.UUID, paging models.Paging) ([]models.Comment, error) {
	p, err := s.visibleProject(ctx, projectID, viewer)
	if err != nil {
		return nil, err
	}
	paging = paging.Normalize()
	return s.store.ListComments(ctx, projectID, p.ClientID == viewer, paging.Limit, paging.Offset())
}

func (s *ProjectService) LikeComment(ctx context.Context, commentID, user uuid.UUID) (bool, int64, error) {
	cm, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return false, 0, errs.FromDB(err, "Comment", "")
	}
	if _, err := s.visibleProject(ctx, cm.ProjectID, user); err != nil {
		return false, 0, err
	}
	liked, count, err := s.store.ToggleCommentLike(ctx, commentID, user)
	if err != nil {
		return false, 0, errs.FromDB(err, "Comment", "")
	}
	return liked, count, nil
}

func (s *ProjectService) HideComment(ctx context.Context, commentID, requester uuid.UUID, hidden bool) error {
	cm, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return errs.FromDB(err, "Comment", "")
	}
	p, err := s.store.GetProject(ctx, cm.ProjectID, uuid.Nil)
	if err != nil {
		return errs.FromDB(err, "Project", "")
	}
	if p.ClientID != requester {
		return errs.NewForbidden("Only the project owner can moderate comments")
	}
	return errs.FromDB(s.store.SetCommentHidden(ctx, commentID, hidden), "Comment", "")
}

// Create posts a project for client. New projects start open unless a
// draft was requested.
func (s *ProjectService) Create(ctx context.Context, client uuid.UUID, in models.ProjectInput, files []*multipart.FileHeader) (*models.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if err := validateProjectFields(in.Title, in.Description, in.Category, in.Budget); err != nil {
		return nil, err
	}

	if in.Status == "" {
		in.Status = models.ProjectOpen
	}
	if in.Status != models.ProjectOpen && in.Status != models.ProjectDraft {
		return nil, errs.NewInvalidField("status", "New projects must be draft or open")
	}
	if in.Visibility == "" {
		in.Visibility = models.VisibilityPublic
	}
	if !in.Visibility.Valid() {
		return nil, errs.NewInvalidField("visibility", "Invalid visibility")
	}

	attachments, err := s.files.SaveAll(ctx, storage.DirProjects, files)
	if err != nil {
		return nil, err
	}

	p := &models.Project{
		ID:          uuid.New(),
		ClientID:    client,
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		Deadline:    in.Deadline,
		Category:    in.Category,
		Skills:      normalizeSkills(in.Skills),
		Status:      in.Status,
		Visibility:  in.Visibility,
		Attachments: attachments,
	}
	events := []models.Event{models.NewActivityEvent(models.Activity{
		UserID:    client,
		Type:      models.ActivityPost,
		ProjectID: &p.ID,
	})}

	if err := s.store.CreateProject(ctx, p, events); err != nil {
		s.files.Remove(ctx, attachments)
		return nil, err
	}
	return p, nil
}

// Update applies patch for the owner. A status change must be allowed by
// models.ProjectTransitions; the assigned freelancer is told about it.
func (s *ProjectService) Update(ctx context.Context, id, requester uuid.UUID, patch models.ProjectPatch, files []*multipart.FileHeader) (*models.Project, error) {
	p, err := s.store.GetProject(ctx, id, requester)
	if err != nil {
		return nil, errs.FromDB(err, "Project", "")
	}
	if p.ClientID != requester {
		return nil, errs.NewForbidden("Not authorized to update this project")
	}

	prev := p.Status
	patch.Apply(p)
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.TrimSpace(p.Category)
	p.Skills = normalizeSkills(p.Skills)
	if err := validateProjectFields(p.Title, p.Description, p.Category, p.Budget); err != nil {
		return nil, err
	}
	if !p.Visibility.Valid() {
		return nil, errs.NewInvalidField("visibility", "Invalid visibility")
	}

	var events []models.Event
	if patch.Status != nil && *patch.Status != p.Status {
		next := *patch.Status
		if !next.Valid() {
			return nil, errs.NewInvalidField("status", "Invalid status")
		}
		if !p.Status.CanTransitionTo(next) {
			return nil, errs.NewInvalidTransition(string(p.Status), string(next))
		}
		p.Status = next
		if p.AssignedFreelancer != nil {
			events = append(events, models.NewNotificationEvent(models.Notification{
				UserID:     *p.AssignedFreelancer,
				Type:       models.NotificationProjectStatusChanged,
				Message:    fmt.Sprintf("Project %q is now %s", p.Title, strings.ReplaceAll(string(next), "_", " ")),
				EntityID:   &p.ID,
				EntityType: models.EntityProject,
			}))
		}
	}

	added, err := s.files.SaveAll(ctx, storage.DirProjects, files)
	if err != nil {
		return nil, err
	}
	p.Attachments = append(p.Attachments, added...)

	if err := s.store.UpdateProject(ctx, p, prev, events); err != nil {
		s.files.Remove(ctx, added)
		return nil, errs.FromDB(err, "Project", "")
	}
	return p, nil
}

// Delete removes an owned project together with its applications and
// comments. Stored files are cleaned up afterwards, best-effort.
func (s *ProjectService) Delete(ctx context.Context, id, requester uuid.UUID) error {
	p, err := s.store.GetProject(ctx, id, uuid.Nil)
	if err != nil {
		return errs.FromDB(err, "Project", "")
	}
	if p.ClientID != requester {
		return errs.NewForbidden("Not authorized to delete this project")
	}
	if p.Status == models.ProjectInProgress {
		return errs.NewValidation("Cannot delete a project that is in progress")
	}

	files, err := s.store.ApplicationAttachments(ctx, id)
	if err != nil {
		return err
	}
	files = append(files, p.Attachments...)

	if err := s.store.DeleteProject(ctx, id); err != nil {
		return errs.FromDB(err, "Project", "")
	}

	if len(files) > 0 {
		if err := s.files.Remove(ctx, files); err != nil {
			s.logger.Warn().Err(err).Str("project_id", id.String()).Msg("project deleted but some files remain")
		}
	}
	return nil
}

func (s *ProjectService) ListMine(ctx context.Context, client uuid.UUID) ([]models.Project, error) {
	return s.store.ListProjectsByClient(ctx, client)
}

func (s *ProjectService) ListSaved(ctx context.Context, user uuid.UUID) ([]models.Project, error) {
	return s.store.ListSavedProjects(ctx, user)
}

// visibleTo reports whether viewer may see p. Drafts and private projects
// are visible to their owner only.
func visibleTo(p *models.Project, viewer uuid.UUID) bool {
	if p.ClientID == viewer {
		return true
	}
	return p.Status != models.ProjectDraft && p.Visibility != models.VisibilityPrivate
}

// visibleProject loads a project and reports it as not found when viewer
// cannot see it.
func (s *ProjectService) visibleProject(ctx context.Context, id, viewer uuid.UUID) (*models.Project, error) {
	p, err := s.store.GetProject(ctx, id, uuid.Nil)
	if err != nil {
		return nil, errs.FromDB(err, "Project", "")
	}
	if !visibleTo(p, viewer) {
		return nil, errs.NewNotFound("Project")
	}
	return p, nil
}

func validateProjectFields(title, description, category string, budget float64) error {
	switch {
	case title == "":
		return errs.NewMissingField("title", "Title is required")
	case len([]rune(title)) > maxTitleLength:
		return errs.NewInvalidField("title", fmt.Sprintf("Title cannot exceed %d characters", maxTitleLength))
	case description == "":
		return errs.NewMissingField("description", "Description is required")
	case category == "":
		return errs.NewMissingField("category", "Category is required")
	}
	return validateAmount("budget", "Budget", budget)
}

// validateAmount accepts finite, positive values that fit the money columns.
func validateAmount(field, label string, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return errs.NewInvalidField(field, label+" must be a number")
	case v <= 0:
		return errs.NewInvalidField(field, label+" must be greater than zero")
	case v > models.MaxAmount:
		return errs.NewInvalidField(field, fmt.Sprintf("%s cannot exceed %.2f", label, models.MaxAmount))
	}
	return nil
}

// normalizeSkills trims, drops empties and dedupes case-insensitively,
// keeping the first spelling.
func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
