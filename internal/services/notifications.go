package services

import (
	"context"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
)

// NotificationService is the read side of notifications. They are written
// by the outbox Dispatcher.
type NotificationService struct {
	store NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, user uuid.UUID, unreadOnly bool, paging models.Paging) ([]models.Notification, error) {
	paging = paging.Normalize()
	return s.store.ListNotifications(ctx, user, unreadOnly, paging.Limit, paging.Offset())
}

func (s *NotificationService) UnreadCount(ctx context.Context, user uuid.UUID) (int, error) {
	return s.store.CountUnreadNotifications(ctx, user)
}

// MarkRead reports NotFound for notifications addressed to someone else.
func (s *NotificationService) MarkRead(ctx context.Context, id, user uuid.UUID) (*models.Notification, error) {
	n, err := s.store.MarkNotificationRead(ctx, id, user)
	if err != nil {
		return nil, errs.FromDB(err, "Notification", "")
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, user uuid.UUID) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, user)
}

func (s *NotificationService) Delete(ctx context.Context, id, user uuid.UUID) error {
	return errs.FromDB(s.store.DeleteNotification(ctx, id, user), "Notification", "")
}
