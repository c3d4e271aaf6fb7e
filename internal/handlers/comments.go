package handlers

import (
	"net/http"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/middleware"
	"freelance-marketplace-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListComments godoc
// @Summary     List project comments
// @Description Newest first; hidden comments are only shown to the project owner
// @Tags        comments
// @Produce     json
// @Param       id    path  string true  "Project ID"
// @Param       page  query int    false "Page number"
// @Param       limit query int    false "Page size"
// @Success     200 {array} models.Comment
// @Router      /api/v1/projects/{id}/comments [get]
func (h *ProjectsHandler) ListComments(c *gin.Context) {
	id, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	comments, err := h.projects.ListComments(c.Request.Context(), id, middleware.UserID(c), queryPaging(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(comments))
}

// AddComment godoc
// @Summary     Comment on a project
// @Tags        comments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Project ID"
// @Param       request body models.CommentRequest true "Comment"
// @Success     201 {object} models.Comment
// @Failure     400 {object} models.ErrorResponse
// @Router      /api/v1/projects/{id}/comments [post]
func (h *ProjectsHandler) AddComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}

	var req models.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errs.NewValidation("Invalid request body"))
		return
	}
	var parentID *uuid.UUID
	if req.ParentID != nil && *req.ParentID != "" {
		parsed, err := uuid.Parse(*req.ParentID)
		if err != nil {
			respondError(c, errs.NewInvalidField("parentId", "Invalid parent comment"))
			return
		}
		parentID = &parsed
	}

	comment, err := h.projects.Comment(c.Request.Context(), id, userID, req.Content, parentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// LikeComment godoc
// @Summary     Toggle a comment like
// @Tags        comments
// @Produce     json
// @Security    BearerAuth
// @Param       commentId path string true "Comment ID"
// @Success     200 {object} models.CommentLikeResponse
// @Router      /api/v1/comments/{commentId}/like [post]
func (h *ProjectsHandler) LikeComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "commentId", "Comment")
	if !ok {
		return
	}
	liked, count, err := h.projects.LikeComment(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CommentLikeResponse{Liked: liked, LikeCount: count})
}

// HideComment godoc
// @Summary     Hide or unhide a comment
// @Description Only the project owner may moderate comments
// @Tags        comments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       commentId path string                    true "Comment ID"
// @Param       request   body models.HideCommentRequest true "Hidden flag"
// @Success     200 {object} models.MessageResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/comments/{commentId}/hide [patch]
func (h *ProjectsHandler) HideComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "commentId", "Comment")
	if !ok {
		return
	}
	req := models.HideCommentRequest{Hidden: true}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errs.NewValidation("Invalid request body"))
			return
		}
	}
	if err := h.projects.HideComment(c.Request.Context(), id, userID, req.Hidden); err != nil {
		respondError(c, err)
		return
	}
	msg := "Comment hidden"
	if !req.Hidden {
		msg = "Comment restored"
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: msg})
}
