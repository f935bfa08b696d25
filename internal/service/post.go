package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/appdotbuilder/amancores/internal/apperror"
	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
)

const MaxPostContentLength = 10000

// PostService handles posts and replies.
type PostService struct {
	posts         repository.PostRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:         posts,
		users:         users,
		notifications: notifications,
		logger:        logger,
	}
}

// Create validates and saves a new post.
//
// Checks run in order: the author must exist, then — for replies — the
// parent post must resolve, each failing with a not-found error naming the
// missing entity. The repository then inserts the row and bumps the
// author's post_count (and the parent's reply_count) in one transaction.
func (s *PostService) Create(ctx context.Context, userID int64, content string, mediaURLs []string, parentPostID *int64) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "post content is required")
	}
	if len(content) > MaxPostContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("post content must be %d characters or less", MaxPostContentLength))
	}

	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	var parent *model.Post
	if parentPostID != nil {
		p, err := s.posts.GetPostByID(ctx, *parentPostID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.NotFound("parent post", *parentPostID)
			}
			return nil, err
		}
		parent = p
	}

	post := &model.Post{
		UserID:       userID,
		Content:      content,
		MediaURLs:    mediaURLs,
		ParentPostID: parentPostID,
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.Int64("id", post.ID),
		slog.Int64("user_id", userID),
		slog.Bool("is_reply", post.IsReply()),
	)

	// Replying to someone else's post notifies them. Best effort: the
	// post is already committed, so a notification failure is logged,
	// not surfaced.
	if parent != nil && parent.UserID != userID {
		s.notify(ctx, &model.Notification{
			UserID:    parent.UserID,
			Type:      model.NotificationTypeReply,
			Title:     "New reply",
			Message:   "Someone replied to your post",
			RelatedID: &post.ID,
		})
	}

	return post, nil
}

func (s *PostService) notify(ctx context.Context, n *model.Notification) {
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("failed to create notification",
			slog.Int64("user_id", n.UserID),
			slog.String("type", n.Type),
			slog.String("error", err.Error()),
		)
	}
}

// GetByID retrieves a post by id.
func (s *PostService) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	return s.posts.GetPostByID(ctx, id)
}

// ListTopLevel returns top-level posts (no parent), newest first, default
// page size 50.
func (s *PostService) ListTopLevel(ctx context.Context, limit, offset int) ([]model.Post, error) {
	return s.posts.ListTopLevelPosts(ctx, repository.ListOptions{Limit: limit, Offset: offset})
}

// ListByUser returns all posts of a user, replies included, newest first.
// Fails with a not-found error if the user does not exist.
func (s *PostService) ListByUser(ctx context.Context, userID int64) ([]model.Post, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.posts.ListPostsByUser(ctx, userID)
}

// ListReplies returns the direct children of a post, newest first. Fails
// with a not-found error if the parent post does not exist.
func (s *PostService) ListReplies(ctx context.Context, parentID int64) ([]model.Post, error) {
	if _, err := s.posts.GetPostByID(ctx, parentID); err != nil {
		return nil, err
	}
	return s.posts.ListPostReplies(ctx, parentID)
}

// Update applies a sparse update (content and/or pin flag).
func (s *PostService) Update(ctx context.Context, id int64, upd model.PostUpdate) (*model.Post, error) {
	if upd.Content != nil {
		trimmed := strings.TrimSpace(*upd.Content)
		if trimmed == "" {
			return nil, apperror.ValidationFailed("content", "post content cannot be empty")
		}
		if len(trimmed) > MaxPostContentLength {
			return nil, apperror.ValidationFailed("content",
				fmt.Sprintf("post content must be %d characters or less", MaxPostContentLength))
		}
		upd.Content = &trimmed
	}

	post, err := s.posts.UpdatePost(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("post updated", slog.Int64("id", id))
	return post, nil
}

// Delete removes a post. The author's post_count (and the parent's
// reply_count for replies) is decremented in the same transaction.
func (s *PostService) Delete(ctx context.Context, id int64) error {
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return err
	}
	s.logger.Info("post deleted", slog.Int64("id", id))
	return nil
}
