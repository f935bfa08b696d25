package service

import (
	"context"
	"log/slog"

	"github.com/appdotbuilder/amancores/internal/apperror"
	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
)

// LikeService handles like edges between users and posts.
type LikeService struct {
	likes         repository.LikeRepository
	posts         repository.PostRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

func NewLikeService(
	likes repository.LikeRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	logger *slog.Logger,
) *LikeService {
	return &LikeService{
		likes:         likes,
		posts:         posts,
		users:         users,
		notifications: notifications,
		logger:        logger,
	}
}

// Create adds a like. The user is checked first, then the post, each
// failing with a not-found error; a duplicate pair is a conflict. The
// repository inserts the like and increments the post's like_count as one
// all-or-nothing unit.
func (s *LikeService) Create(ctx context.Context, userID, postID int64) (*model.Like, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	existing, err := s.likes.GetLike(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("like already exists")
	}

	like := &model.Like{UserID: userID, PostID: postID}
	if err := s.likes.CreateLike(ctx, like); err != nil {
		return nil, err
	}

	s.logger.Info("like created",
		slog.Int64("user_id", userID),
		slog.Int64("post_id", postID),
	)

	// Liking someone else's post notifies the author. Best effort.
	if post.UserID != userID {
		n := &model.Notification{
			UserID:    post.UserID,
			Type:      model.NotificationTypeLike,
			Title:     "New like",
			Message:   "Someone liked your post",
			RelatedID: &postID,
		}
		if err := s.notifications.CreateNotification(ctx, n); err != nil {
			s.logger.Warn("failed to create like notification",
				slog.Int64("user_id", n.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	return like, nil
}

// Delete removes a like and decrements the post's like_count. A missing
// pair is a not-found error.
func (s *LikeService) Delete(ctx context.Context, userID, postID int64) error {
	if err := s.likes.DeleteLike(ctx, userID, postID); err != nil {
		return err
	}

	s.logger.Info("like deleted",
		slog.Int64("user_id", userID),
		slog.Int64("post_id", postID),
	)
	return nil
}
