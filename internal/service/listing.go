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
	MaxListingTitleLength       = 200
	MaxListingDescriptionLength = 5000
)

// ListingService handles marketplace listings.
type ListingService struct {
	listings repository.ListingRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewListingService(listings repository.ListingRepository, users repository.UserRepository, logger *slog.Logger) *ListingService {
	return &ListingService{listings: listings, users: users, logger: logger}
}

// CreateListingInput carries the fields for a new listing.
type CreateListingInput struct {
	UserID      int64
	Title       string
	Description string
	Price       float64
	Currency    string
	Category    string
	Condition   string
	Location    string
	MediaURLs   []string
}

// Create validates and saves a new listing. New listings start active.
func (s *ListingService) Create(ctx context.Context, in CreateListingInput) (*model.Listing, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))

	if in.Title == "" {
		return nil, apperror.ValidationFailed("title", "listing title is required")
	}
	if len(in.Title) > MaxListingTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("listing title must be %d characters or less", MaxListingTitleLength))
	}
	if len(in.Description) > MaxListingDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxListingDescriptionLength))
	}
	if in.Price <= 0 {
		return nil, apperror.ValidationFailed("price", "price must be greater than zero")
	}
	if len(in.Currency) != 3 {
		return nil, apperror.ValidationFailed("currency", "currency must be a 3-letter code")
	}
	if !model.ValidCondition(in.Condition) {
		return nil, apperror.ValidationFailed("condition",
			"condition must be one of: new, like_new, good, fair, poor")
	}

	if _, err := s.users.GetUserByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	listing := &model.Listing{
		UserID:      in.UserID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Currency:    in.Currency,
		Category:    strings.TrimSpace(in.Category),
		Condition:   in.Condition,
		Location:    strings.TrimSpace(in.Location),
		MediaURLs:   in.MediaURLs,
	}

	if err := s.listings.CreateListing(ctx, listing); err != nil {
		s.logger.Error("failed to create listing",
			slog.Int64("user_id", in.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating listing: %w", err)
	}

	s.logger.Info("listing created",
		slog.Int64("id", listing.ID),
		slog.Int64("user_id", in.UserID),
		slog.String("currency", listing.Currency),
	)

	return listing, nil
}

// GetByID fetches a listing by id. The read itself increments view_count
// and refreshes updated_at; the returned record includes this view.
func (s *ListingService) GetByID(ctx context.Context, id int64) (*model.Listing, error) {
	return s.listings.GetListingByID(ctx, id)
}

// List returns listings matching the optional filters, newest first.
func (s *ListingService) List(ctx context.Context, f repository.ListingFilter) ([]model.Listing, error) {
	return s.listings.ListListings(ctx, f)
}

// ListByUser returns a seller's listings matching the optional filters.
func (s *ListingService) ListByUser(ctx context.Context, userID int64, f repository.ListingFilter) ([]model.Listing, error) {
	return s.listings.ListListingsByUser(ctx, userID, f)
}

// Search matches query as a case-insensitive substring of title or
// description. Only active listings are eligible, even on an exact title
// match. An empty query matches every active listing, so Search with
// filters degrades to a plain filtered list.
func (s *ListingService) Search(ctx context.Context, query string, f repository.ListingFilter) ([]model.Listing, error) {
	active := true
	f.Query = strings.TrimSpace(query)
	f.IsActive = &active
	return s.listings.ListListings(ctx, f)
}

// Update applies a sparse update; provided values are validated the same
// way as on create.
func (s *ListingService) Update(ctx context.Context, id int64, upd model.ListingUpdate) (*model.Listing, error) {
	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		if t == "" {
			return nil, apperror.ValidationFailed("title", "listing title cannot be empty")
		}
		if len(t) > MaxListingTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("listing title must be %d characters or less", MaxListingTitleLength))
		}
		upd.Title = &t
	}
	if upd.Price != nil && *upd.Price <= 0 {
		return nil, apperror.ValidationFailed("price", "price must be greater than zero")
	}
	if upd.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*upd.Currency))
		if len(c) != 3 {
			return nil, apperror.ValidationFailed("currency", "currency must be a 3-letter code")
		}
		upd.Currency = &c
	}
	if upd.Condition != nil && !model.ValidCondition(*upd.Condition) {
		return nil, apperror.ValidationFailed("condition",
			"condition must be one of: new, like_new, good, fair, poor")
	}

	listing, err := s.listings.UpdateListing(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing updated", slog.Int64("id", id))
	return listing, nil
}

// Deactivate marks a listing inactive. Idempotent: deactivating an
// already-inactive listing succeeds.
func (s *ListingService) Deactivate(ctx context.Context, id int64) error {
	if err := s.listings.DeactivateListing(ctx, id); err != nil {
		return err
	}
	s.logger.Info("listing deactivated", slog.Int64("id", id))
	return nil
}
