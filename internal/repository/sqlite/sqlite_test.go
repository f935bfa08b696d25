package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/appdotbuilder/amancores/internal/model"
)

// newTestDB returns a DB backed by an in-memory SQLite database, fully
// migrated, closed automatically when the test finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user %q: %v", username, err)
	}
	return user
}

func createTestPost(t *testing.T, db *DB, userID int64, content string) *model.Post {
	t.Helper()
	post := &model.Post{UserID: userID, Content: content}
	if err := db.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

func createTestReply(t *testing.T, db *DB, userID, parentID int64, content string) *model.Post {
	t.Helper()
	post := &model.Post{UserID: userID, Content: content, ParentPostID: &parentID}
	if err := db.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("failed to create test reply: %v", err)
	}
	return post
}

func createTestListing(t *testing.T, db *DB, userID int64, title string, price float64) *model.Listing {
	t.Helper()
	listing := &model.Listing{
		UserID:    userID,
		Title:     title,
		Price:     price,
		Currency:  "USD",
		Condition: model.ConditionGood,
	}
	if err := db.CreateListing(context.Background(), listing); err != nil {
		t.Fatalf("failed to create test listing %q: %v", title, err)
	}
	return listing
}

func createTestTransaction(t *testing.T, db *DB, listingID, buyerID, sellerID int64, amount float64) *model.Transaction {
	t.Helper()
	txn := &model.Transaction{
		Reference: fmt.Sprintf("ref-%d-%d", listingID, buyerID),
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
		Amount:    amount,
		Currency:  "USD",
	}
	if err := db.CreateTransaction(context.Background(), txn); err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return txn
}
