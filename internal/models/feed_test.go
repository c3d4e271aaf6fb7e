package models_test

import (
	"math"
	"testing"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestProjectFilter_NormalizeDefaults(t *testing.T) {
	f := models.ProjectFilter{Sort: "random", Limit: 500}
	require.NoError(t, f.Normalize())

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, models.MaxPageSize, f.Limit)
	assert.Equal(t, models.SortNewest, f.Sort)
	assert.Equal(t, 0, f.Offset())
}

func TestProjectFilter_PopularIsViews(t *testing.T) {
	f := models.ProjectFilter{Sort: models.SortPopular}
	require.NoError(t, f.Normalize())
	assert.Equal(t, models.SortViews, f.Sort)
}

func TestProjectFilter_RejectsInvertedBudget(t *testing.T) {
	f := models.ProjectFilter{MinBudget: ptr(500.0), MaxBudget: ptr(100.0)}
	err := f.Normalize()
	assert.True(t, errs.IsValidation(err))
}

func TestProjectFilter_RejectsNonFiniteBudget(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		f := models.ProjectFilter{MinBudget: ptr(v)}
		assert.True(t, errs.IsValidation(f.Normalize()), "minBudget %v", v)

		f = models.ProjectFilter{MaxBudget: ptr(v)}
		assert.True(t, errs.IsValidation(f.Normalize()), "maxBudget %v", v)
	}
}

func TestProjectFilter_ClampsHugePage(t *testing.T) {
	f := models.ProjectFilter{Page: math.MaxInt, Limit: models.MaxPageSize}
	require.NoError(t, f.Normalize())

	assert.Equal(t, models.MaxPage, f.Page)
	assert.Equal(t, (models.MaxPage-1)*models.MaxPageSize, f.Offset())
	assert.Positive(t, f.Offset())
}

func TestPaging_Normalize(t *testing.T) {
	p := models.Paging{Page: math.MaxInt, Limit: 1000}.Normalize()
	assert.Equal(t, models.MaxPage, p.Page)
	assert.Equal(t, 100, p.Limit)
	assert.Positive(t, p.Offset())

	p = models.Paging{Page: -3}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 0, p.Offset())
}

func TestNewProjectPage_HasMore(t *testing.T) {
	f := models.ProjectFilter{Page: 2, Limit: 10}

	page := models.NewProjectPage(make([]models.Project, 10), 25, f)
	assert.True(t, page.HasMore)

	page = models.NewProjectPage(make([]models.Project, 5), 25, models.ProjectFilter{Page: 3, Limit: 10})
	assert.False(t, page.HasMore)

	page = models.NewProjectPage(nil, 0, f)
	assert.NotNil(t, page.Projects)
	assert.False(t, page.HasMore)
}

func TestAttachments_Find(t *testing.T) {
	atts := models.Attachments{{Filename: "attachments-1-a.pdf", OriginalName: "cv.pdf"}}

	att, ok := atts.Find("attachments-1-a.pdf")
	assert.True(t, ok)
	assert.Equal(t, "cv.pdf", att.OriginalName)

	_, ok = atts.Find("missing.pdf")
	assert.False(t, ok)
}
