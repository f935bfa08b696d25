package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/rs/xid"

	"github.com/appdotbuilder/amancores/internal/apperror"
	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
)

// AmountTolerance is how far a transaction amount may deviate from the
// listing price and still count as equal. Amounts cross the boundary as
// floats, so exact comparison would reject e.g. 99.99 arriving as
// 99.990000000000002.
const AmountTolerance = 0.01

// TransactionService handles purchase transactions.
type TransactionService struct {
	transactions  repository.TransactionRepository
	listings      repository.ListingRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

func NewTransactionService(
	transactions repository.TransactionRepository,
	listings repository.ListingRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	logger *slog.Logger,
) *TransactionService {
	return &TransactionService{
		transactions:  transactions,
		listings:      listings,
		users:         users,
		notifications: notifications,
		logger:        logger,
	}
}

// Create validates and records a purchase. The checks run in a fixed
// order so repeated invalid requests get the same error:
//
//  1. the listing exists            → not found
//  2. the listing is active         → state error
//  3. the buyer exists              → not found
//  4. the seller exists             → not found
//  5. buyer != seller               → invalid operation
//  6. seller owns the listing       → invalid operation
//  7. amount matches the price      → validation error (±0.01)
//  8. currency matches the listing  → validation error
//
// After validation comes the idempotency check: if a pending transaction
// already exists for (listing, buyer), it is returned unchanged — no new
// row, no error — which makes retried create requests safe. A concurrent
// duplicate that beats us to the insert is caught by the partial unique
// index and resolved the same way.
func (s *TransactionService) Create(ctx context.Context, listingID, buyerID, sellerID int64, amount float64, currency, paymentMethod string) (*model.Transaction, error) {
	// Validation reads use LookupListing: fetching a listing for a
	// purchase must not count as a view.
	listing, err := s.listings.LookupListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsActive {
		return nil, apperror.State("listing is not active")
	}

	if _, err := s.users.GetUserByID(ctx, buyerID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("buyer", buyerID)
		}
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, sellerID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("seller", sellerID)
		}
		return nil, err
	}

	if buyerID == sellerID {
		return nil, apperror.InvalidOperation("buyer and seller cannot be the same user")
	}
	if sellerID != listing.UserID {
		return nil, apperror.InvalidOperation("seller does not own the listing")
	}

	if math.Abs(amount-listing.Price) > AmountTolerance {
		return nil, apperror.ValidationFailed("amount",
			fmt.Sprintf("amount %.2f does not match listing price %.2f", amount, listing.Price))
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency != listing.Currency {
		return nil, apperror.ValidationFailed("currency",
			fmt.Sprintf("currency %s does not match listing currency %s", currency, listing.Currency))
	}

	if existing, err := s.transactions.GetPendingTransaction(ctx, listingID, buyerID); err != nil {
		return nil, err
	} else if existing != nil {
		s.logger.Info("returning existing pending transaction",
			slog.Int64("id", existing.ID),
			slog.Int64("listing_id", listingID),
			slog.Int64("buyer_id", buyerID),
		)
		return existing, nil
	}

	txn := &model.Transaction{
		Reference:     xid.New().String(),
		ListingID:     listingID,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		Amount:        amount,
		Currency:      currency,
		PaymentMethod: strings.TrimSpace(paymentMethod),
	}

	if err := s.transactions.CreateTransaction(ctx, txn); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// Lost the race: someone inserted the pending row between our
			// check and the insert. Return theirs.
			existing, getErr := s.transactions.GetPendingTransaction(ctx, listingID, buyerID)
			if getErr != nil {
				return nil, getErr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("creating transaction: %w", err)
	}

	s.logger.Info("transaction created",
		slog.Int64("id", txn.ID),
		slog.String("reference", txn.Reference),
		slog.Int64("listing_id", listingID),
		slog.Int64("buyer_id", buyerID),
	)

	// The seller hears about the sale. Best effort.
	n := &model.Notification{
		UserID:    sellerID,
		Type:      model.NotificationTypeTransaction,
		Title:     "New purchase",
		Message:   fmt.Sprintf("Your listing %q has a pending purchase", listing.Title),
		RelatedID: &txn.ID,
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("failed to create transaction notification",
			slog.Int64("user_id", sellerID),
			slog.String("error", err.Error()),
		)
	}

	return txn, nil
}

// GetByID retrieves a transaction by id.
func (s *TransactionService) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	return s.transactions.GetTransactionByID(ctx, id)
}

// ListByUser returns the transactions where the user appears as buyer or
// seller.
func (s *TransactionService) ListByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	return s.transactions.ListTransactionsByUser(ctx, userID)
}

// ListByListing returns a listing's transactions.
func (s *TransactionService) ListByListing(ctx context.Context, listingID int64) ([]model.Transaction, error) {
	return s.transactions.ListTransactionsByListing(ctx, listingID)
}

// UpdateStatus persists an arbitrary caller-supplied status string and
// refreshes the timestamp. There is no transition table; only an empty
// status is rejected.
func (s *TransactionService) UpdateStatus(ctx context.Context, id int64, status string) (*model.Transaction, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, apperror.ValidationFailed("status", "status is required")
	}

	txn, err := s.transactions.UpdateTransactionStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction status updated",
		slog.Int64("id", id),
		slog.String("status", status),
	)
	return txn, nil
}
