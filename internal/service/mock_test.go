package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/appdotbuilder/amancores/internal/apperror"
	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
)

// Hand-written in-memory mocks for the repository interfaces. They honor
// the same error contracts as the sqlite implementations (ErrNotFound on
// missing rows, ErrConflict on duplicates, nil-means-absent lookups) so
// service tests exercise the real decision paths. Error injection fields
// let tests simulate failures that are hard to trigger against a real
// database.

var (
	_ repository.UserRepository         = (*mockUserRepo)(nil)
	_ repository.PostRepository         = (*mockPostRepo)(nil)
	_ repository.ListingRepository      = (*mockListingRepo)(nil)
	_ repository.FollowRepository       = (*mockFollowRepo)(nil)
	_ repository.LikeRepository         = (*mockLikeRepo)(nil)
	_ repository.TransactionRepository  = (*mockTransactionRepo)(nil)
	_ repository.NotificationRepository = (*mockNotificationRepo)(nil)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ----- users -----

type mockUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User)}
}

func (m *mockUserRepo) addUser(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com"}
	if err := m.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("adding mock user %q: %v", username, err)
	}
	return u
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) {
			return apperror.Conflict("username is already taken")
		}
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.Conflict("email is already registered")
		}
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFoundMsg(
		fmt.Sprintf("user not found with username %q", username))
}

func (m *mockUserRepo) ListUsers(_ context.Context) ([]model.User, error) {
	result := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockUserRepo) UpdateUser(_ context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) UpsertUserByGitHubID(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.GitHubID != nil && user.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			u.Username = user.Username
			u.Email = user.Email
			u.AvatarURL = user.AvatarURL
			user.ID = u.ID
			return nil
		}
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

// ----- posts -----

type mockPostRepo struct {
	posts  map[int64]*model.Post
	nextID int64
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{posts: make(map[int64]*model.Post)}
}

func (m *mockPostRepo) CreatePost(_ context.Context, post *model.Post) error {
	m.nextID++
	post.ID = m.nextID
	stored := *post
	m.posts[post.ID] = &stored
	if post.ParentPostID != nil {
		if parent, ok := m.posts[*post.ParentPostID]; ok {
			parent.ReplyCount++
		}
	}
	return nil
}

func (m *mockPostRepo) GetPostByID(_ context.Context, id int64) (*model.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	result := *p
	return &result, nil
}

func (m *mockPostRepo) ListTopLevelPosts(_ context.Context, opts repository.ListOptions) ([]model.Post, error) {
	result := []model.Post{}
	for _, p := range m.posts {
		if p.ParentPostID == nil {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if opts.Offset >= len(result) {
		return []model.Post{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *mockPostRepo) ListPostsByUser(_ context.Context, userID int64) ([]model.Post, error) {
	result := []model.Post{}
	for _, p := range m.posts {
		if p.UserID == userID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockPostRepo) ListPostReplies(_ context.Context, parentID int64) ([]model.Post, error) {
	result := []model.Post{}
	for _, p := range m.posts {
		if p.ParentPostID != nil && *p.ParentPostID == parentID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockPostRepo) UpdatePost(_ context.Context, id int64, upd model.PostUpdate) (*model.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.IsPinned != nil {
		p.IsPinned = *upd.IsPinned
	}
	result := *p
	return &result, nil
}

func (m *mockPostRepo) DeletePost(_ context.Context, id int64) error {
	if _, ok := m.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(m.posts, id)
	return nil
}

// ----- listings -----

type mockListingRepo struct {
	listings map[int64]*model.Listing
	nextID   int64
}

func newMockListingRepo() *mockListingRepo {
	return &mockListingRepo{listings: make(map[int64]*model.Listing)}
}

func (m *mockListingRepo) addListing(t *testing.T, userID int64, title string, price float64) *model.Listing {
	t.Helper()
	l := &model.Listing{
		UserID:    userID,
		Title:     title,
		Price:     price,
		Currency:  "USD",
		Condition: model.ConditionGood,
	}
	if err := m.CreateListing(context.Background(), l); err != nil {
		t.Fatalf("adding mock listing %q: %v", title, err)
	}
	return l
}

func (m *mockListingRepo) CreateListing(_ context.Context, listing *model.Listing) error {
	m.nextID++
	listing.ID = m.nextID
	listing.IsActive = true
	listing.ViewCount = 0
	stored := *listing
	m.listings[listing.ID] = &stored
	return nil
}

func (m *mockListingRepo) GetListingByID(_ context.Context, id int64) (*model.Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return nil, apperror.NotFound("listing", id)
	}
	l.ViewCount++
	result := *l
	return &result, nil
}

func (m *mockListingRepo) LookupListing(_ context.Context, id int64) (*model.Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return nil, apperror.NotFound("listing", id)
	}
	result := *l
	return &result, nil
}

func (m *mockListingRepo) ListListings(_ context.Context, f repository.ListingFilter) ([]model.Listing, error) {
	result := []model.Listing{}
	for _, l := range m.listings {
		if f.IsActive != nil && l.IsActive != *f.IsActive {
			continue
		}
		if f.Query != "" {
			q := strings.ToLower(f.Query)
			if !strings.Contains(strings.ToLower(l.Title), q) &&
				!strings.Contains(strings.ToLower(l.Description), q) {
				continue
			}
		}
		result = append(result, *l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockListingRepo) ListListingsByUser(_ context.Context, userID int64, _ repository.ListingFilter) ([]model.Listing, error) {
	result := []model.Listing{}
	for _, l := range m.listings {
		if l.UserID == userID {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockListingRepo) UpdateListing(_ context.Context, id int64, upd model.ListingUpdate) (*model.Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return nil, apperror.NotFound("listing", id)
	}
	if upd.Title != nil {
		l.Title = *upd.Title
	}
	if upd.Description != nil {
		l.Description = *upd.Description
	}
	if upd.Price != nil {
		l.Price = *upd.Price
	}
	if upd.Currency != nil {
		l.Currency = *upd.Currency
	}
	if upd.Category != nil {
		l.Category = *upd.Category
	}
	if upd.Condition != nil {
		l.Condition = *upd.Condition
	}
	if upd.Location != nil {
		l.Location = *upd.Location
	}
	if upd.MediaURLs != nil {
		l.MediaURLs = *upd.MediaURLs
	}
	if upd.IsActive != nil {
		l.IsActive = *upd.IsActive
	}
	result := *l
	return &result, nil
}

func (m *mockListingRepo) DeactivateListing(_ context.Context, id int64) error {
	l, ok := m.listings[id]
	if !ok {
		return apperror.NotFound("listing", id)
	}
	l.IsActive = false
	return nil
}

// ----- follows -----

type followKey struct {
	followerID  int64
	followingID int64
}

type mockFollowRepo struct {
	edges  map[followKey]*model.Follow
	users  *mockUserRepo
	nextID int64
}

func newMockFollowRepo(users *mockUserRepo) *mockFollowRepo {
	return &mockFollowRepo{edges: make(map[followKey]*model.Follow), users: users}
}

func (m *mockFollowRepo) CreateFollow(_ context.Context, follow *model.Follow) error {
	key := followKey{follow.FollowerID, follow.FollowingID}
	if _, ok := m.edges[key]; ok {
		return apperror.Conflict("follow relationship already exists")
	}
	m.nextID++
	follow.ID = m.nextID
	stored := *follow
	m.edges[key] = &stored
	return nil
}

func (m *mockFollowRepo) DeleteFollow(_ context.Context, followerID, followingID int64) error {
	key := followKey{followerID, followingID}
	if _, ok := m.edges[key]; !ok {
		return apperror.NotFound("follow", followerID)
	}
	delete(m.edges, key)
	return nil
}

func (m *mockFollowRepo) GetFollow(_ context.Context, followerID, followingID int64) (*model.Follow, error) {
	f, ok := m.edges[followKey{followerID, followingID}]
	if !ok {
		return nil, nil
	}
	result := *f
	return &result, nil
}

func (m *mockFollowRepo) ListFollowers(_ context.Context, userID int64) ([]model.User, error) {
	result := []model.User{}
	for key := range m.edges {
		if key.followingID == userID {
			if u, ok := m.users.users[key.followerID]; ok {
				result = append(result, *u)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockFollowRepo) ListFollowing(_ context.Context, userID int64) ([]model.User, error) {
	result := []model.User{}
	for key := range m.edges {
		if key.followerID == userID {
			if u, ok := m.users.users[key.followingID]; ok {
				result = append(result, *u)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ----- likes -----

type likeKey struct {
	userID int64
	postID int64
}

type mockLikeRepo struct {
	likes  map[likeKey]*model.Like
	nextID int64
}

func newMockLikeRepo() *mockLikeRepo {
	return &mockLikeRepo{likes: make(map[likeKey]*model.Like)}
}

func (m *mockLikeRepo) CreateLike(_ context.Context, like *model.Like) error {
	key := likeKey{like.UserID, like.PostID}
	if _, ok := m.likes[key]; ok {
		return apperror.Conflict("like already exists")
	}
	m.nextID++
	like.ID = m.nextID
	stored := *like
	m.likes[key] = &stored
	return nil
}

func (m *mockLikeRepo) DeleteLike(_ context.Context, userID, postID int64) error {
	key := likeKey{userID, postID}
	if _, ok := m.likes[key]; !ok {
		return apperror.NotFound("like", postID)
	}
	delete(m.likes, key)
	return nil
}

func (m *mockLikeRepo) GetLike(_ context.Context, userID, postID int64) (*model.Like, error) {
	l, ok := m.likes[likeKey{userID, postID}]
	if !ok {
		return nil, nil
	}
	result := *l
	return &result, nil
}

// ----- transactions -----

type mockTransactionRepo struct {
	txns   map[int64]*model.Transaction
	nextID int64

	// createErr is returned (once) by the next CreateTransaction call. If
	// raceWinner is set it is stored first, simulating a concurrent create
	// that landed between the caller's idempotency check and its insert.
	createErr  error
	raceWinner *model.Transaction
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{txns: make(map[int64]*model.Transaction)}
}

func (m *mockTransactionRepo) CreateTransaction(_ context.Context, txn *model.Transaction) error {
	if m.createErr != nil {
		err := m.createErr
		m.createErr = nil
		if m.raceWinner != nil {
			m.nextID++
			m.raceWinner.ID = m.nextID
			m.raceWinner.Status = model.TransactionStatusPending
			m.txns[m.raceWinner.ID] = m.raceWinner
		}
		return err
	}
	for _, t := range m.txns {
		if t.ListingID == txn.ListingID && t.BuyerID == txn.BuyerID &&
			t.Status == model.TransactionStatusPending {
			return apperror.Conflict("pending transaction already exists for this listing and buyer")
		}
	}
	m.nextID++
	txn.ID = m.nextID
	txn.Status = model.TransactionStatusPending
	stored := *txn
	m.txns[txn.ID] = &stored
	return nil
}

func (m *mockTransactionRepo) GetTransactionByID(_ context.Context, id int64) (*model.Transaction, error) {
	t, ok := m.txns[id]
	if !ok {
		return nil, apperror.NotFound("transaction", id)
	}
	result := *t
	return &result, nil
}

func (m *mockTransactionRepo) GetPendingTransaction(_ context.Context, listingID, buyerID int64) (*model.Transaction, error) {
	for _, t := range m.txns {
		if t.ListingID == listingID && t.BuyerID == buyerID &&
			t.Status == model.TransactionStatusPending {
			result := *t
			return &result, nil
		}
	}
	return nil, nil
}

func (m *mockTransactionRepo) ListTransactionsByUser(_ context.Context, userID int64) ([]model.Transaction, error) {
	result := []model.Transaction{}
	for _, t := range m.txns {
		if t.BuyerID == userID || t.SellerID == userID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockTransactionRepo) ListTransactionsByListing(_ context.Context, listingID int64) ([]model.Transaction, error) {
	result := []model.Transaction{}
	for _, t := range m.txns {
		if t.ListingID == listingID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockTransactionRepo) UpdateTransactionStatus(_ context.Context, id int64, status string) (*model.Transaction, error) {
	t, ok := m.txns[id]
	if !ok {
		return nil, apperror.NotFound("transaction", id)
	}
	t.Status = status
	result := *t
	return &result, nil
}

// ----- notifications -----

type mockNotificationRepo struct {
	notifications []*model.Notification
	nextID        int64

	// createErr makes CreateNotification fail, for best-effort delivery
	// tests.
	createErr error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) CreateNotification(_ context.Context, n *model.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	n.ID = m.nextID
	n.IsRead = false
	stored := *n
	m.notifications = append(m.notifications, &stored)
	return nil
}

func (m *mockNotificationRepo) MarkNotificationRead(_ context.Context, id int64) (bool, error) {
	for _, n := range m.notifications {
		if n.ID == id {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) MarkAllNotificationsRead(_ context.Context, userID int64) error {
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (m *mockNotificationRepo) ListNotificationsByUser(_ context.Context, userID int64, f repository.NotificationFilter) ([]model.Notification, error) {
	result := []model.Notification{}
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if f.IsRead != nil && n.IsRead != *f.IsRead {
			continue
		}
		if f.Type != nil && n.Type != *f.Type {
			continue
		}
		result = append(result, *n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockNotificationRepo) CountUnreadNotifications(_ context.Context, userID int64) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}
