package handlers

import (
	"net/http"

	"freelance-marketplace-backend/internal/membership"
	"freelance-marketplace-backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

type MembershipsHandler struct {
	applications ApplicationService
}

func NewMembershipsHandler(applications ApplicationService) *MembershipsHandler {
	return &MembershipsHandler{applications: applications}
}

// ListPlans godoc
// @Summary     List membership plans
// @Tags        memberships
// @Produce     json
// @Success     200 {array} membership.Plan
// @Router      /api/v1/memberships [get]
func (h *MembershipsHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, membership.Plans())
}

// MyMembership godoc
// @Summary     Current plan and bid usage
// @Description bidsRemaining is -1 for plans without a monthly cap
// @Tags        memberships
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} membership.Usage
// @Router      /api/v1/memberships/me [get]
func (h *MembershipsHandler) MyMembership(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	usage, err := h.applications.BidUsage(c.Request.Context(), userID, middleware.Membership(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}
