package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/appdotbuilder/amancores/internal/apperror"
	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
)

// NotificationService handles user notifications.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	logger        *slog.Logger
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		logger:        logger,
	}
}

// Create delivers a notification to a user.
func (s *NotificationService) Create(ctx context.Context, userID int64, typ, title, message string, relatedID *int64) (*model.Notification, error) {
	typ = strings.TrimSpace(typ)
	title = strings.TrimSpace(title)

	if !model.ValidNotificationType(typ) {
		return nil, apperror.ValidationFailed("type",
			"type must be one of: like, follow, mention, reply, transaction")
	}
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}

	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	n := &model.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   strings.TrimSpace(message),
		RelatedID: relatedID,
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	s.logger.Info("notification created",
		slog.Int64("id", n.ID),
		slog.Int64("user_id", userID),
		slog.String("type", typ),
	)
	return n, nil
}

// MarkRead marks one notification read. The boolean reports whether a row
// was updated; a missing id yields (false, nil) rather than an error.
func (s *NotificationService) MarkRead(ctx context.Context, id int64) (bool, error) {
	return s.notifications.MarkNotificationRead(ctx, id)
}

// MarkAllRead marks all of a user's notifications read. Fails with a
// not-found error if the user does not exist; a user with no
// notifications succeeds.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return err
	}
	return s.notifications.MarkAllNotificationsRead(ctx, userID)
}

// ListByUser returns a user's notifications, newest first, with optional
// read-state and type filters.
func (s *NotificationService) ListByUser(ctx context.Context, userID int64, f repository.NotificationFilter) ([]model.Notification, error) {
	return s.notifications.ListNotificationsByUser(ctx, userID, f)
}

// CountUnread returns the number of unread notifications for a user.
func (s *NotificationService) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return s.notifications.CountUnreadNotifications(ctx, userID)
}
