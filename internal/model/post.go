package model

import "time"

// Post is a piece of user content. A post with a nil ParentPostID is
// "top-level"; a post whose ParentPostID points at another post is a reply.
// Only one level of nesting is ever queried (direct children), though
// replies-to-replies are structurally allowed.
//
// LikeCount and ReplyCount are denormalized counters maintained inside the
// same transaction as the like/reply row change. RepostCount is stored for
// the response contract but no repost operation mutates it yet.
type Post struct {
	ID           int64     `json:"id"             db:"id"`
	UserID       int64     `json:"user_id"        db:"user_id"`
	Content      string    `json:"content"        db:"content"`
	MediaURLs    []string  `json:"media_urls"     db:"media_urls"`
	LikeCount    int64     `json:"like_count"     db:"like_count"`
	RepostCount  int64     `json:"repost_count"   db:"repost_count"`
	ReplyCount   int64     `json:"reply_count"    db:"reply_count"`
	IsPinned     bool      `json:"is_pinned"      db:"is_pinned"`
	ParentPostID *int64    `json:"parent_post_id" db:"parent_post_id"`
	CreatedAt    time.Time `json:"created_at"     db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"     db:"updated_at"`
}

// IsReply reports whether the post has a parent.
func (p *Post) IsReply() bool {
	return p.ParentPostID != nil
}

// PostUpdate is a sparse post update. Nil fields are left untouched.
type PostUpdate struct {
	Content  *string
	IsPinned *bool
}
