package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/logging"
	"freelance-marketplace-backend/internal/middleware"
	"freelance-marketplace-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// multipartMemory is the in-memory cap for multipart forms; larger parts
// spill to temporary files.
const multipartMemory = 32 << 20

func logger() zerolog.Logger { return logging.Component("handlers") }

// respondError writes err as an ErrorResponse. Anything that is not an
// *errs.ApiErr is logged and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	var apiErr *errs.ApiErr
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			l := logger()
			l.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		}
		c.JSON(apiErr.StatusCode, models.ErrorResponse{
			Error:   apiErr.Code(),
			Message: apiErr.Message,
			Field:   apiErr.Field,
		})
		return
	}

	l := logger()
	l.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("unhandled error")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "Server error",
	})
}

// pathUUID parses the named path parameter; a malformed id is reported as
// not found because no entity can carry it.
func pathUUID(c *gin.Context, name, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, errs.NewNotFound(entity))
		return uuid.Nil, false
	}
	return id, true
}

// requireUser returns the authenticated caller. Routes behind
// AuthMiddleware always have one; the check guards against wiring mistakes.
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	id := middleware.UserID(c)
	if id == uuid.Nil {
		respondError(c, errs.NewUnauthorized("Authentication required"))
		return uuid.Nil, false
	}
	return id, true
}

func queryPaging(c *gin.Context) models.Paging {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return models.Paging{Page: page, Limit: limit}
}

// queryFloat parses an optional numeric query parameter.
func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, ok := parseAmount(raw)
	if !ok {
		return nil, errs.NewInvalidField(name, name+" must be a number")
	}
	return &v, nil
}

// parseAmount parses a finite decimal. ParseFloat also accepts "NaN" and
// "Inf", which no money column can hold.
func parseAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
