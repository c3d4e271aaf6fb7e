package errs_test

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"freelance-marketplace-backend/internal/errs"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApiErr_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", errs.NewNotFound("Project"))

	assert.True(t, errs.IsNotFound(err))
	assert.False(t, errs.IsForbidden(err))

	var apiErr *errs.ApiErr
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Project not found", apiErr.Message)
}

func TestFromDB_NoRows(t *testing.T) {
	err := errs.FromDB(sql.ErrNoRows, "Application", "")
	assert.True(t, errs.IsNotFound(err))
}

func TestFromDB_StaleWrite(t *testing.T) {
	err := errs.FromDB(fmt.Errorf("update: %w", errs.ErrStaleWrite), "Application", "")

	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	var apiErr *errs.ApiErr
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "status", apiErr.Field)
	assert.Equal(t, "Application status changed; reload and try again", apiErr.Message)
}

func TestFromDB_UniqueViolation(t *testing.T) {
	err := errs.FromDB(&pq.Error{Code: "23505"}, "Application", "You have already applied to this project")

	assert.True(t, errs.IsConflict(err))
	var apiErr *errs.ApiErr
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "You have already applied to this project", apiErr.Message)
}

func TestFromDB_Other(t *testing.T) {
	cause := errors.New("connection reset")
	err := errs.FromDB(cause, "Project", "dup")

	assert.ErrorIs(t, err, cause)
	var apiErr *errs.ApiErr
	assert.False(t, errors.As(err, &apiErr))
}

func TestInvalidTransition(t *testing.T) {
	err := errs.NewInvalidTransition("accepted", "pending")

	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.Equal(t, http.StatusConflict, err.StatusCode)
	assert.Equal(t, "cannot change status from accepted to pending", err.Error())
}
