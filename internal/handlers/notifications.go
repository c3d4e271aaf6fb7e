package handlers

import (
	"context"
	"net/http"

	"freelance-marketplace-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type NotificationService interface {
	List(ctx context.Context, user uuid.UUID, unreadOnly bool, paging models.Paging) ([]models.Notification, error)
	UnreadCount(ctx context.Context, user uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, user uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, user uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, user uuid.UUID) error
}

type ActivityService interface {
	ListForUser(ctx context.Context, user uuid.UUID, paging models.Paging) ([]models.Activity, error)
	ListForProject(ctx context.Context, projectID uuid.UUID, paging models.Paging) ([]models.Activity, error)
}

type NotificationsHandler struct {
	notifications NotificationService
	activity      ActivityService
}

func NewNotificationsHandler(notifications NotificationService, activity ActivityService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications, activity: activity}
}

// ListNotifications godoc
// @Summary     List my notifications
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Param       unread query bool false "Only unread notifications"
// @Param       page   query int  false "Page number"
// @Param       limit  query int  false "Page size"
// @Success     200 {array} models.Notification
// @Router      /api/v1/notifications [get]
func (h *NotificationsHandler) ListNotifications(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	list, err := h.notifications.List(c.Request.Context(), userID, c.Query("unread") == "true", queryPaging(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(list))
}

// UnreadCount godoc
// @Summary     Count unread notifications
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.UnreadCountResponse
// @Router      /api/v1/notifications/unread-count [get]
func (h *NotificationsHandler) UnreadCount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	n, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.UnreadCountResponse{Count: n})
}

// MarkRead godoc
// @Summary     Mark a notification read
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Notification ID"
// @Success     200 {object} models.Notification
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/notifications/{id}/read [patch]
func (h *NotificationsHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "Notification")
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// MarkAllRead godoc
// @Summary     Mark every notification read
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.MessageResponse
// @Router      /api/v1/notifications/read-all [post]
func (h *NotificationsHandler) MarkAllRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if _, err := h.notifications.MarkAllRead(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "All notifications marked as read"})
}

// DeleteNotification godoc
// @Summary     Delete a notification
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Notification ID"
// @Success     200 {object} models.MessageResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/notifications/{id} [delete]
func (h *NotificationsHandler) DeleteNotification(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "Notification")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Notification deleted"})
}

// MyActivity godoc
// @Summary     List my activity
// @Tags        activity
// @Produce     json
// @Security    BearerAuth
// @Param       page  query int false "Page number"
// @Param       limit query int false "Page size"
// @Success     200 {array} models.Activity
// @Router      /api/v1/activity [get]
func (h *NotificationsHandler) MyActivity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	list, err := h.activity.ListForUser(c.Request.Context(), userID, queryPaging(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(list))
}

// ProjectActivity godoc
// @Summary     List a project's activity
// @Tags        activity
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string true  "Project ID"
// @Param       page  query int    false "Page number"
// @Param       limit query int    false "Page size"
// @Success     200 {array} models.Activity
// @Router      /api/v1/projects/{id}/activity [get]
func (h *NotificationsHandler) ProjectActivity(c *gin.Context) {
	id, ok := pathUUID(c, "id", "Project")
	if !ok {
		return
	}
	list, err := h.activity.ListForProject(c.Request.Context(), id, queryPaging(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(list))
}
