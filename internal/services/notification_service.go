package services

import (
	"context"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"
)

// NotificationList - страница уведомлений со счётчиком непрочитанных.
type NotificationList struct {
	UnreadCount   int                   `json:"unread_count"`
	Notifications []models.Notification `json:"notifications"`
}

type NotificationService struct {
	Repo repository.NotificationRepository
	now  Clock
}

// NewNotificationService создаёт новый экземпляр NotificationService.
func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{Repo: repo, now: utcNow}
}

func (s *NotificationService) ListNotifications(ctx context.Context, actor auth.Principal, filter models.NotificationFilter) (*NotificationList, error) {
	notifications, err := s.Repo.ListNotifications(ctx, actor.UserID, filter)
	if err != nil {
		return nil, err
	}
	unread, err := s.Repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &NotificationList{UnreadCount: unread, Notifications: notifications}, nil
}

// MarkRead помечает прочитанными только уведомления самого пользователя.
func (s *NotificationService) MarkRead(ctx context.Context, actor auth.Principal, req models.MarkReadRequest) (int64, error) {
	if len(req.NotificationIDs) == 0 {
		return 0, models.NewValidationError("notification_ids", "This list may not be empty.")
	}
	return s.Repo.MarkRead(ctx, actor.UserID, req.NotificationIDs, s.now())
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor auth.Principal) (int64, error) {
	return s.Repo.MarkAllRead(ctx, actor.UserID, s.now())
}

func (s *NotificationService) UnreadCount(ctx context.Context, actor auth.Principal) (int, error) {
	return s.Repo.CountUnread(ctx, actor.UserID)
}
