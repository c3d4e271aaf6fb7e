package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/middleware"
	"freelance-marketplace-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProjectService is the project feed and engagement API the handlers need.
type ProjectService interface {
	List(ctx context.Context, f models.ProjectFilter) (*models.ProjectPage, error)
	Get(ctx context.Context, id, viewer uuid.UUID) (*models.Project, error)
	RecordView(ctx context.Context, id, viewer uuid.UUID) (int64, error)
	Like(ctx context.Context, id, user uuid.UUID) (bool, int64, error)
	Save(ctx context.Context, id, user uuid.UUID) (bool, int64, error)
	Share(ctx context.Context, id, user uuid.UUID) (int64, error)
	Comment(ctx context.Context, projectID, user uuid.UUID, content string, parentID *uuid.UUID) (*models.Comment, error)
	ListComments(ctx context.Context, projectID, viewer uuid.UUID, paging models.Paging) ([]models.Comment, error)
	LikeComment(ctx context.Context, commentID, user uuid.UUID) (bool, int64, error)
	HideComment(ctx context.Context, commentID, requester uuid.UUID, hidden bool) error
	Create(ctx context.Context, client uuid.UUID, in models.ProjectInput, files []*multipart.FileHeader) (*models.Project, error)
	Update(ctx context.Context, id, requester uuid.UUID, patch models.ProjectPatch, files []*multipart.FileHeader) (*models.Project, error)
	Delete(ctx context.Context, id, requester uuid.UUID) error
	ListMine(ctx context.Context, client uuid.UUID) ([]models.Project, error)
	ListSaved(ctx context.Context, user uuid.UUID) ([]models.Project, error)
}

type ProjectsHandler struct {
	projects ProjectService
}

func NewProjectsHandler(projects ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

// ListProjects godoc
// @Summary     Browse open projects
// @Description Paginated feed of open public projects with optional filters
// @Tags        projects
// @Produce     json
// @Param       page      query int    false "Page number (default 1)"
// @Param       limit     query int    false "Page size (default 10, max 50)"
// @Param       category  query string false "Category"
// @Param       skills    query string false "Comma-separated skills, any match"
// @Param       minBudget query number false "Minimum budget"
// @Param       maxBudget query number false "Maximum budget"
// @Param       sort      query string false "newest, budget_high, budget_low, deadline, views or popular"
// @Success     200 {object} models.ProjectPage
// @Failure     400 {object} models.ErrorResponse
// @Router      /api/v1/projects [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	f := models.ProjectFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Sort:     models.ProjectSort(c.Query("sort")),
		Viewer:   middleware.UserID(c),
	}
	f.Page, _ = strconv.Atoi(c.Query("page"))
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Skills = splitList(c.Query("skills"))

	var err error
	if f.MinBudget, err = queryFloat(c, "minBudget"); err != nil {
		respondError(c, err)
		return
	}
	if f.MaxBudget, err = queryFloat(c, "maxBudget"); err != nil {
		respondError(c, err)
		return
	}

	page, err := h.projects.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetProject godoc
// @Summary     Get a project
// @Description Returns a project with its latest comments and counts a view unless track=false
// @Tags        projects
// @Produce     json
// @Param       id    path  string true  "Project ID"
// @Param       track query bool   false "Count this request as a view (default true)"
// @Success     200 {object} models.Project
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/projects/{id} [get]
func (h *ProjectsHandler) GetProject(c *gin.Context) {
	id, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	viewer := middleware.UserID(c)

	// Load first so hidden projects are not counted.
	project, err := h.projects.Get(c.Request.Context(), id, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("track") != "false" {
		views, err := h.projects.RecordView(c.Request.Context(), id, viewer)
		if err != nil {
			respondError(c, err)
			return
		}
		project.Views = views
	}
	c.JSON(http.StatusOK, project)
}

// RecordView godoc
// @Summary     Count a project view
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Project ID"
// @Success     200 {object} models.ViewResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/projects/{id}/views [post]
func (h *ProjectsHandler) RecordView(c *gin.Context) {
	id, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	views, err := h.projects.RecordView(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ViewResponse{Views: views})
}

// CreateProject godoc
// @Summary     Post a project
// @Description Creates a project from a multipart form or JSON body; files go in "attachments"
// @Tags        projects
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       title       formData string true  "Title"
// @Param       description formData string true  "Description"
// @Param       budget      formData number true  "Budget"
// @Param       category    formData string true  "Category"
// @Param       deadline    formData string false "Deadline (RFC 3339 or YYYY-MM-DD)"
// @Param       skills      formData string false "Comma-separated skills"
// @Param       status      formData string false "open (default) or draft"
// @Param       visibility  formData string false "public (default) or private"
// @Param       attachments formData file   false "Up to 5 files"
// @Success     201 {object} models.CreateProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /api/v1/projects [post]
func (h *ProjectsHandler) CreateProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	req, files, err := bindProjectRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	project, err := h.projects.Create(c.Request.Context(), userID, req.Input(), files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreateProjectResponse{ProjectID: project.ID.String()})
}

// UpdateProject godoc
// @Summary     Update a project
// @Description Owner-only partial update; status changes follow the project lifecycle
// @Tags        projects
// @Accept      json
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Project ID"
// @Param       request body models.ProjectRequest true "Fields to change"
// @Success     200 {object} models.Project
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /api/v1/projects/{id} [put]
func (h *ProjectsHandler) UpdateProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	req, files, err := bindProjectRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	project, err := h.projects.Update(c.Request.Context(), id, userID, req.Patch(), files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject godoc
// @Summary     Delete a project
// @Description Owner-only; applications and comments are removed with it
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Project ID"
// @Success     200 {object} models.MessageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/projects/{id} [delete]
func (h *ProjectsHandler) DeleteProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Project deleted successfully"})
}

// LikeProject godoc
// @Summary     Toggle a like
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Project ID"
// @Success     200 {object} models.LikeResponse
// @Router      /api/v1/projects/{id}/like [post]
func (h *ProjectsHandler) LikeProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	liked, count, err := h.projects.Like(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LikeResponse{Liked: liked, LikeCount: count})
}

// SaveProject godoc
// @Summary     Toggle a bookmark
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Project ID"
// @Success     200 {object} models.SaveResponse
// @Router      /api/v1/projects/{id}/save [post]
func (h *ProjectsHandler) SaveProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	saved, count, err := h.projects.Save(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SaveResponse{Saved: saved, SaveCount: count})
}

// ShareProject godoc
// @Summary     Count a share
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Project ID"
// @Success     200 {object} models.ShareResponse
// @Router      /api/v1/projects/{id}/share [post]
func (h *ProjectsHandler) ShareProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	shares, err := h.projects.Share(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ShareResponse{Shares: shares})
}

// MyProjects godoc
// @Summary     List my projects
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Project
// @Router      /api/v1/my-projects [get]
func (h *ProjectsHandler) MyProjects(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	projects, err := h.projects.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(projects))
}

// SavedProjects godoc
// @Summary     List bookmarked projects
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Project
// @Router      /api/v1/saved-projects [get]
func (h *ProjectsHandler) SavedProjects(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	projects, err := h.projects.ListSaved(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(projects))
}

// bindProjectRequest reads a project body from either a multipart form or
// JSON. Only multipart requests can carry attachments.
func bindProjectRequest(c *gin.Context) (models.ProjectRequest, []*multipart.FileHeader, error) {
	var req models.ProjectRequest
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, nil, errs.NewValidation("Invalid request body")
		}
		return req, nil, nil
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return req, nil, errs.NewValidation("Invalid multipart form")
	}
	form := c.Request.MultipartForm

	field := func(name string) *string {
		if v, ok := form.Value[name]; ok && len(v) > 0 {
			return &v[0]
		}
		return nil
	}
	req.Title = field("title")
	req.Description = field("description")
	req.Category = field("category")
	req.Status = field("status")
	req.Visibility = field("visibility")

	if raw := field("budget"); raw != nil && *raw != "" {
		budget, ok := parseAmount(*raw)
		if !ok {
			return req, nil, errs.NewInvalidField("budget", "Budget must be a number")
		}
		req.Budget = &budget
	}
	if raw := field("deadline"); raw != nil && *raw != "" {
		deadline, err := parseDeadline(*raw)
		if err != nil {
			return req, nil, errs.NewInvalidField("deadline", "Deadline must be a date")
		}
		req.Deadline = &deadline
	}
	if values, ok := form.Value["skills"]; ok {
		req.Skills = parseSkills(values)
	}

	return req, attachmentFiles(form), nil
}

// attachmentFiles accepts both "attachments" and "attachments[]" field names.
func attachmentFiles(form *multipart.Form) []*multipart.FileHeader {
	files := append([]*multipart.FileHeader{}, form.File["attachments"]...)
	return append(files, form.File["attachments[]"]...)
}

func parseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// parseSkills takes repeated form values, a comma-separated string or a
// JSON array string.
func parseSkills(values []string) []string {
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var skills []string
		if err := json.Unmarshal([]byte(values[0]), &skills); err == nil {
			return skills
		}
	}
	var skills []string
	for _, v := range values {
		skills = append(skills, splitList(v)...)
	}
	if skills == nil {
		skills = []string{}
	}
	return skills
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
