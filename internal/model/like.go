package model

import "time"

// Like is an association edge between a user and a post. The (user, post)
// pair is unique; creating or deleting a like adjusts the post's like_count
// in the same transaction.
type Like struct {
	ID        int64     `json:"id"         db:"id"`
	UserID    int64     `json:"user_id"    db:"user_id"`
	PostID    int64     `json:"post_id"    db:"post_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
