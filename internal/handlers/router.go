package handlers

import (
	"freelance-marketplace-backend/internal/config"
	"freelance-marketplace-backend/internal/metrics"
	"freelance-marketplace-backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health        *HealthHandler
	Projects      *ProjectsHandler
	Applications  *ApplicationsHandler
	Notifications *NotificationsHandler
	Memberships   *MembershipsHandler
}

// NewRouter builds the gin engine with every route. limiter may be nil.
func NewRouter(cfg *config.Config, h Handlers, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	router.GET("/health", h.Health.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")

	public := api.Group("")
	public.Use(middleware.OptionalAuth(cfg))
	{
		public.GET("/projects", h.Projects.ListProjects)
		public.GET("/projects/:id", h.Projects.GetProject)
		public.GET("/projects/:id/comments", h.Projects.ListComments)
		public.GET("/memberships", h.Memberships.ListPlans)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg))
	if limiter != nil {
		protected.Use(limiter.Middleware())
	}
	{
		protected.POST("/projects", h.Projects.CreateProject)
		protected.PUT("/projects/:id", h.Projects.UpdateProject)
		protected.DELETE("/projects/:id", h.Projects.DeleteProject)
		protected.POST("/projects/:id/views", h.Projects.RecordView)
		protected.POST("/projects/:id/like", h.Projects.LikeProject)
		protected.POST("/projects/:id/save", h.Projects.SaveProject)
		protected.POST("/projects/:id/share", h.Projects.ShareProject)
		protected.POST("/projects/:id/comments", h.Projects.AddComment)
		protected.GET("/projects/:id/activity", h.Notifications.ProjectActivity)
		protected.POST("/projects/:id/apply", h.Applications.Apply)
		protected.GET("/projects/:id/applications", h.Applications.ProjectApplications)

		protected.POST("/comments/:commentId/like", h.Projects.LikeComment)
		protected.PATCH("/comments/:commentId/hide", h.Projects.HideComment)

		protected.GET("/my-projects", h.Projects.MyProjects)
		protected.GET("/saved-projects", h.Projects.SavedProjects)
		protected.GET("/my-applications", h.Applications.MyApplications)

		protected.GET("/applications/:applicationId", h.Applications.GetApplication)
		protected.PATCH("/applications/:applicationId/status", h.Applications.UpdateStatus)
		protected.PATCH("/applications/:applicationId/archive", h.Applications.ArchiveApplication)
		protected.GET("/applications/:applicationId/attachments/:filename", h.Applications.DownloadAttachment)

		protected.GET("/notifications", h.Notifications.ListNotifications)
		protected.GET("/notifications/unread-count", h.Notifications.UnreadCount)
		protected.PATCH("/notifications/:id/read", h.Notifications.MarkRead)
		protected.POST("/notifications/read-all", h.Notifications.MarkAllRead)
		protected.DELETE("/notifications/:id", h.Notifications.DeleteNotification)

		protected.GET("/activity", h.Notifications.MyActivity)
		protected.GET("/memberships/me", h.Memberships.MyMembership)
	}

	return router
}
