// Package repository declares the storage interfaces consumed by the
// service layer. The sqlite subpackage implements all of them on one DB
// value; tests substitute in-memory mocks.
//
// Conventions shared by every implementation:
//   - Lookups that can miss return apperror.ErrNotFound (wrapped), except
//     where the contract says "nil means absent" (GetFollow, GetLike,
//     GetPendingTransaction).
//   - A row change and its denormalized counter adjustments happen inside
//     one SQL transaction, with counters mutated via atomic
//     "SET c = c + 1" updates rather than read-modify-write.
package repository

import (
	"context"

	"github.com/appdotbuilder/amancores/internal/model"
)

// ListOptions is limit/offset pagination. Implementations clamp Limit to a
// sane range and treat non-positive values as "use the default".
type ListOptions struct {
	Limit  int
	Offset int
}

// ListingFilter holds the optional, independently combinable listing
// filters. Nil pointer fields mean "no constraint". Query is a free-text
// case-insensitive substring match against title OR description; the empty
// string matches everything.
type ListingFilter struct {
	Query     string
	Category  *string
	Location  *string // case-insensitive substring
	MinPrice  *float64
	MaxPrice  *float64
	Condition *string
	IsActive  *bool
	Limit     int
	Offset    int
}

// NotificationFilter narrows a user's notification listing.
type NotificationFilter struct {
	IsRead *bool
	Type   *string
	Limit  int
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	// GetUserByUsername looks the username up case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error)
	// UpsertUserByGitHubID inserts the user, or refreshes the profile of
	// the existing row with the same github_id, filling in ID either way.
	UpsertUserByGitHubID(ctx context.Context, user *model.User) error
}

type PostRepository interface {
	// CreatePost inserts the post, increments the author's post_count and,
	// for replies, the parent's reply_count — all in one transaction.
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id int64) (*model.Post, error)
	// ListTopLevelPosts returns posts with no parent, newest first.
	ListTopLevelPosts(ctx context.Context, opts ListOptions) ([]model.Post, error)
	// ListPostsByUser returns all of a user's posts, replies included,
	// newest first.
	ListPostsByUser(ctx context.Context, userID int64) ([]model.Post, error)
	// ListPostReplies returns direct children only, newest first.
	ListPostReplies(ctx context.Context, parentID int64) ([]model.Post, error)
	UpdatePost(ctx context.Context, id int64, upd model.PostUpdate) (*model.Post, error)
	// DeletePost removes the post and decrements the author's post_count
	// (and the parent's reply_count if the post was a reply) in one
	// transaction.
	DeletePost(ctx context.Context, id int64) error
}

type ListingRepository interface {
	CreateListing(ctx context.Context, listing *model.Listing) error
	// GetListingByID increments view_count and refreshes updated_at as a
	// side effect, returning the row with the incremented count.
	GetListingByID(ctx context.Context, id int64) (*model.Listing, error)
	// LookupListing is GetListingByID without the view-count side effect,
	// for internal validation reads.
	LookupListing(ctx context.Context, id int64) (*model.Listing, error)
	ListListings(ctx context.Context, f ListingFilter) ([]model.Listing, error)
	ListListingsByUser(ctx context.Context, userID int64, f ListingFilter) ([]model.Listing, error)
	UpdateListing(ctx context.Context, id int64, upd model.ListingUpdate) (*model.Listing, error)
	// DeactivateListing sets is_active = false. Idempotent: deactivating
	// an already-inactive listing succeeds.
	DeactivateListing(ctx context.Context, id int64) error
}

type FollowRepository interface {
	// CreateFollow inserts the edge and increments the follower's
	// following_count and the followed user's follower_count in one
	// transaction. Returns ErrConflict if the edge already exists.
	CreateFollow(ctx context.Context, follow *model.Follow) error
	// DeleteFollow removes the edge and decrements both counters. Returns
	// ErrNotFound if the edge does not exist.
	DeleteFollow(ctx context.Context, followerID, followingID int64) error
	// GetFollow returns the edge, or (nil, nil) if it does not exist.
	GetFollow(ctx context.Context, followerID, followingID int64) (*model.Follow, error)
	// ListFollowers returns the full user records of everyone following
	// userID.
	ListFollowers(ctx context.Context, userID int64) ([]model.User, error)
	// ListFollowing returns the full user records of everyone userID
	// follows.
	ListFollowing(ctx context.Context, userID int64) ([]model.User, error)
}

type LikeRepository interface {
	// CreateLike inserts the like and increments the post's like_count in
	// one transaction. Returns ErrConflict if the pair already exists.
	CreateLike(ctx context.Context, like *model.Like) error
	// DeleteLike removes the like and decrements like_count. Returns
	// ErrNotFound if the pair is absent.
	DeleteLike(ctx context.Context, userID, postID int64) error
	// GetLike returns the like, or (nil, nil) if it does not exist.
	GetLike(ctx context.Context, userID, postID int64) (*model.Like, error)
}

type TransactionRepository interface {
	// CreateTransaction inserts a new transaction. A partial unique index
	// on (listing_id, buyer_id) WHERE status='pending' backs the
	// idempotency contract; a duplicate pending insert surfaces as
	// ErrConflict so the service can return the existing row instead.
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error)
	// GetPendingTransaction returns the pending transaction for
	// (listing, buyer), or (nil, nil) if there is none.
	GetPendingTransaction(ctx context.Context, listingID, buyerID int64) (*model.Transaction, error)
	// ListTransactionsByUser returns transactions where the user is buyer
	// OR seller.
	ListTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error)
	ListTransactionsByListing(ctx context.Context, listingID int64) ([]model.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id int64, status string) (*model.Transaction, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	// MarkNotificationRead flips is_read on one notification. The bool
	// reports whether a row was found; a missing id is not an error.
	MarkNotificationRead(ctx context.Context, id int64) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID int64) error
	ListNotificationsByUser(ctx context.Context, userID int64, f NotificationFilter) ([]model.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID int64) (int64, error)
}
