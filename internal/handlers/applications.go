package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/membership"
	"freelance-marketplace-backend/internal/middleware"
	"freelance-marketplace-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ApplicationService interface {
	Submit(ctx context.Context, projectID, freelancer uuid.UUID, tier string, in models.ApplicationInput, files []*multipart.FileHeader) (*models.Application, error)
	ListForProject(ctx context.Context, projectID, requester uuid.UUID, includeArchived bool) ([]models.Application, error)
	ListMine(ctx context.Context, freelancer uuid.UUID) ([]models.Application, error)
	SetStatus(ctx context.Context, appID, requester uuid.UUID, status string, clientNotes *string) (*models.Application, error)
	Archive(ctx context.Context, appID, requester uuid.UUID, archived bool) (*models.Application, error)
	GetByID(ctx context.Context, appID, requester uuid.UUID) (*models.Application, error)
	OpenAttachment(ctx context.Context, appID uuid.UUID, filename string, requester uuid.UUID) (*models.Attachment, io.ReadCloser, error)
	BidUsage(ctx context.Context, freelancer uuid.UUID, tier string) (membership.Usage, error)
}

type ApplicationsHandler struct {
	applications ApplicationService
}

func NewApplicationsHandler(applications ApplicationService) *ApplicationsHandler {
	return &ApplicationsHandler{applications: applications}
}

// Apply godoc
// @Summary     Apply to a project
// @Description Submits a proposal; up to 5 files (PDF, Office documents, JPEG, PNG; 5MB each) in "attachments"
// @Tags        applications
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id                path     string true  "Project ID"
// @Param       coverLetter       formData string true  "Cover letter"
// @Param       proposedBudget    formData number false "Proposed budget (defaults to the project budget)"
// @Param       estimatedDuration formData string false "Estimated duration"
// @Param       attachments       formData file   false "Attachments"
// @Success     201 {object} models.CreateApplicationResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/projects/{id}/apply [post]
func (h *ApplicationsHandler) Apply(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	req, files, err := bindApplyRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	app, err := h.applications.Submit(c.Request.Context(), projectID, userID, middleware.Membership(c), req.Input(), files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreateApplicationResponse{ApplicationID: app.ID.String()})
}

// ProjectApplications godoc
// @Summary     List applications for a project
// @Description Owner only; archived applications are excluded unless includeArchived=true
// @Tags        applications
// @Produce     json
// @Security    BearerAuth
// @Param       id              path  string true  "Project ID"
// @Param       includeArchived query bool   false "Include archived applications"
// @Success     200 {array} models.Application
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/projects/{id}/applications [get]
func (h *ApplicationsHandler) ProjectApplications(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	includeArchived := c.Query("includeArchived") == "true"
	apps, err := h.applications.ListForProject(c.Request.Context(), projectID, userID, includeArchived)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(apps))
}

// MyApplications godoc
// @Summary     List my applications
// @Tags        applications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Application
// @Router      /api/v1/my-applications [get]
func (h *ApplicationsHandler) MyApplications(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	apps, err := h.applications.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(apps))
}

// GetApplication godoc
// @Summary     Get an application
// @Description Visible to the applicant and the project owner
// @Tags        applications
// @Produce     json
// @Security    BearerAuth
// @Param       applicationId path string true "Application ID"
// @Success     200 {object} models.Application
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/applications/{applicationId} [get]
func (h *ApplicationsHandler) GetApplication(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	appID, ok := pathUUID(c, "applicationId", "Application")
	if !ok {
		return
	}
	app, err := h.applications.GetByID(c.Request.Context(), appID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// UpdateStatus godoc
// @Summary     Change an application's status
// @Description Owner only; accepted and rejected are final
// @Tags        applications
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       applicationId path string               true "Application ID"
// @Param       request       body models.StatusRequest true "New status"
// @Success     200 {object} models.Application
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /api/v1/applications/{applicationId}/status [patch]
func (h *ApplicationsHandler) UpdateStatus(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	appID, ok := pathUUID(c, "applicationId", "Application")
	if !ok {
		return
	}
	var req models.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errs.NewMissingField("status", "Invalid status"))
		return
	}

	app, err := h.applications.SetStatus(c.Request.Context(), appID, userID, req.Status, req.ClientNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// ArchiveApplication godoc
// @Summary     Archive or unarchive an application
// @Tags        applications
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       applicationId path string                true "Application ID"
// @Param       request       body models.ArchiveRequest true "Archived flag"
// @Success     200 {object} models.Application
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/applications/{applicationId}/archive [patch]
func (h *ApplicationsHandler) ArchiveApplication(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	appID, ok := pathUUID(c, "applicationId", "Application")
	if !ok {
		return
	}
	var req models.ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errs.NewValidation("Invalid request body"))
		return
	}
	app, err := h.applications.Archive(c.Request.Context(), appID, userID, req.Archived)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// DownloadAttachment godoc
// @Summary     Download an application attachment
// @Description Streams the file to the applicant or the project owner
// @Tags        applications
// @Produce     octet-stream
// @Security    BearerAuth
// @Param       applicationId path string true "Application ID"
// @Param       filename      path string true "Stored file name"
// @Success     200 {file} file
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/applications/{applicationId}/attachments/{filename} [get]
func (h *ApplicationsHandler) DownloadAttachment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	appID, ok := pathUUID(c, "applicationId", "Application")
	if !ok {
		return
	}

	att, rc, err := h.applications.OpenAttachment(c.Request.Context(), appID, c.Param("filename"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	contentType := att.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := att.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, contentType, rc, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": att.OriginalName}),
	})
}

// bindApplyRequest reads the application fields from a multipart or
// url-encoded form, or from JSON.
func bindApplyRequest(c *gin.Context) (models.ApplyRequest, []*multipart.FileHeader, error) {
	var req models.ApplyRequest
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, nil, errs.NewValidation("Invalid request body")
		}
		return req, nil, nil
	}

	var files []*multipart.FileHeader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
			return req, nil, errs.NewValidation("Invalid multipart form")
		}
		files = attachmentFiles(c.Request.MultipartForm)
	}

	req.CoverLetter = c.PostForm("coverLetter")
	req.EstimatedDuration = strings.TrimSpace(c.PostForm("estimatedDuration"))
	if raw := strings.TrimSpace(c.PostForm("proposedBudget")); raw != "" {
		budget, ok := parseAmount(raw)
		if !ok {
			return req, nil, errs.NewInvalidField("proposedBudget", "Proposed budget must be a number")
		}
		req.ProposedBudget = &budget
	}
	return req, files, nil
}
