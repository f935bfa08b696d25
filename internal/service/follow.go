package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/appdotbuilder/amancores/internal/apperror"
	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
)

// FollowService handles the directed follow graph.
type FollowService struct {
	follows       repository.FollowRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

func NewFollowService(
	follows repository.FollowRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	logger *slog.Logger,
) *FollowService {
	return &FollowService{
		follows:       follows,
		users:         users,
		notifications: notifications,
		logger:        logger,
	}
}

// Create adds a follow edge. Checks run in a fixed order so callers get
// deterministic errors:
//
//  1. follower != following, else a self-reference error
//  2. follower exists, else not-found naming the follower id
//  3. following exists, else not-found naming the following id
//  4. the edge must not already exist, else a conflict
//
// The repository then inserts the edge and adjusts following_count and
// follower_count inside one transaction.
func (s *FollowService) Create(ctx context.Context, followerID, followingID int64) (*model.Follow, error) {
	if followerID == followingID {
		return nil, apperror.SelfReference("users cannot follow themselves")
	}

	if _, err := s.users.GetUserByID(ctx, followerID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, followingID); err != nil {
		return nil, err
	}

	existing, err := s.follows.GetFollow(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("follow relationship already exists")
	}

	follow := &model.Follow{
		FollowerID:  followerID,
		FollowingID: followingID,
	}
	if err := s.follows.CreateFollow(ctx, follow); err != nil {
		// A concurrent duplicate slips past the check above and lands
		// here as a conflict from the unique constraint.
		return nil, err
	}

	s.logger.Info("follow created",
		slog.Int64("follower_id", followerID),
		slog.Int64("following_id", followingID),
	)

	s.notifyFollow(ctx, follow)

	return follow, nil
}

func (s *FollowService) notifyFollow(ctx context.Context, f *model.Follow) {
	n := &model.Notification{
		UserID:    f.FollowingID,
		Type:      model.NotificationTypeFollow,
		Title:     "New follower",
		Message:   "You have a new follower",
		RelatedID: &f.FollowerID,
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("failed to create follow notification",
			slog.Int64("user_id", n.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// Delete removes a follow edge and rolls both counters back. Returns a
// not-found error if the edge does not exist.
func (s *FollowService) Delete(ctx context.Context, followerID, followingID int64) error {
	if err := s.follows.DeleteFollow(ctx, followerID, followingID); err != nil {
		return err
	}

	s.logger.Info("follow deleted",
		slog.Int64("follower_id", followerID),
		slog.Int64("following_id", followingID),
	)
	return nil
}

// Get returns the edge for the ordered pair, or nil if it does not exist.
// (A,B) and (B,A) are independent.
func (s *FollowService) Get(ctx context.Context, followerID, followingID int64) (*model.Follow, error) {
	return s.follows.GetFollow(ctx, followerID, followingID)
}

// Followers returns the users following userID.
func (s *FollowService) Followers(ctx context.Context, userID int64) ([]model.User, error) {
	users, err := s.follows.ListFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing followers: %w", err)
	}
	return users, nil
}

// Following returns the users userID follows.
func (s *FollowService) Following(ctx context.Context, userID int64) ([]model.User, error) {
	users, err := s.follows.ListFollowing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing following: %w", err)
	}
	return users, nil
}
