package services

import (
	"context"

	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
)

// ActivityService reads the append-only activity log.
type ActivityService struct {
	store ActivityStore
}

func NewActivityService(store ActivityStore) *ActivityService {
	return &ActivityService{store: store}
}

func (s *ActivityService) ListForUser(ctx context.Context, user uuid.UUID, paging models.Paging) ([]models.Activity, error) {
	paging = paging.Normalize()
	return s.store.ListActivitiesByUser(ctx, user, paging.Limit, paging.Offset())
}

func (s *ActivityService) ListForProject(ctx context.Context, projectID uuid.UUID, paging models.Paging) ([]models.Activity, error) {
	paging = paging.Normalize()
	return s.store.ListActivitiesByProject(ctx, projectID, paging.Limit, paging.Offset())
}
