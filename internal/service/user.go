// Package service contains the business logic layer.
//
// Handlers parse HTTP and delegate here; services enforce the domain rules
// (existence of referenced entities, self-reference and duplicate-edge
// prohibitions, amount/currency consistency) and orchestrate repositories.
// Services return apperror values; they know nothing about HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/appdotbuilder/amancores/internal/apperror"
	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
)

const (
	MaxUsernameLength    = 50
	MaxDisplayNameLength = 100
	MaxBioLength         = 500
)

// UserService handles user profiles.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

// Create registers a new user profile. Username and email are unique;
// duplicates surface as ErrConflict from the repository.
func (s *UserService) Create(ctx context.Context, username, email, displayName, bio, avatarURL string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if len(displayName) > MaxDisplayNameLength {
		return nil, apperror.ValidationFailed("display_name",
			fmt.Sprintf("display name must be %d characters or less", MaxDisplayNameLength))
	}
	if len(bio) > MaxBioLength {
		return nil, apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	}

	user := &model.User{
		Username:    username,
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		Bio:         strings.TrimSpace(bio),
		AvatarURL:   strings.TrimSpace(avatarURL),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.Int64("id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// GetByID retrieves a user by id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// GetByUsername retrieves a user by username. The lookup is
// case-insensitive; the stored casing is returned.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	return s.repo.GetUserByUsername(ctx, username)
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Update applies a sparse profile update: nil fields stay untouched,
// non-nil fields replace the stored value, and updated_at is refreshed.
func (s *UserService) Update(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	if upd.DisplayName != nil && len(*upd.DisplayName) > MaxDisplayNameLength {
		return nil, apperror.ValidationFailed("display_name",
			fmt.Sprintf("display name must be %d characters or less", MaxDisplayNameLength))
	}
	if upd.Bio != nil && len(*upd.Bio) > MaxBioLength {
		return nil, apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	}

	user, err := s.repo.UpdateUser(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", slog.Int64("id", id))
	return user, nil
}
