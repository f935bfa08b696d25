package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/appdotbuilder/amancores/internal/apperror"
	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

const postColumns = `id, user_id, content, media_urls, like_count,
	repost_count, reply_count, is_pinned, parent_post_id, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }, p *model.Post) error {
	var urls string
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Content,
		&urls,
		&p.LikeCount,
		&p.RepostCount,
		&p.ReplyCount,
		&p.IsPinned,
		&p.ParentPostID,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return err
	}
	parsed, err := parseURLs(urls)
	if err != nil {
		return err
	}
	p.MediaURLs = parsed
	return nil
}

// CreatePost inserts the post and adjusts the related counters in one
// transaction: the author's post_count always, the parent's reply_count
// when the post is a reply. The insert and both counter updates either all
// commit or none do.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	urls, err := urlsText(post.MediaURLs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO posts (user_id, content, media_urls, is_pinned,
				parent_post_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			post.UserID, post.Content, urls, post.IsPinned,
			post.ParentPostID, post.CreatedAt, post.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating post: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new post id: %w", err)
		}
		post.ID = id

		// Atomic column update, not read-modify-write: concurrent creates
		// by the same author can't lose increments.
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET post_count = post_count + 1 WHERE id = ?`,
			post.UserID,
		); err != nil {
			return fmt.Errorf("sqlite: incrementing post_count for user %d: %w", post.UserID, err)
		}

		if post.ParentPostID != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE posts SET reply_count = reply_count + 1 WHERE id = ?`,
				*post.ParentPostID,
			); err != nil {
				return fmt.Errorf("sqlite: incrementing reply_count for post %d: %w", *post.ParentPostID, err)
			}
		}

		return nil
	})
}

// GetPostByID retrieves a post by id.
func (db *DB) GetPostByID(ctx context.Context, id int64) (*model.Post, error) {
	var p model.Post
	err := scanPost(db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id), &p)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %d: %w", id, err)
	}
	return &p, nil
}

// ListTopLevelPosts returns posts with no parent, newest first.
func (db *DB) ListTopLevelPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE parent_post_id IS NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ListPostsByUser returns all of a user's posts, replies included,
// newest first.
func (db *DB) ListPostsByUser(ctx context.Context, userID int64) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts for user %d: %w", userID, err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ListPostReplies returns direct children of a post, newest first. One
// level only; replies-to-replies show up under their own parent.
func (db *DB) ListPostReplies(ctx context.Context, parentID int64) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE parent_post_id = ?
		 ORDER BY created_at DESC, id DESC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing replies for post %d: %w", parentID, err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

func collectPosts(rows *sql.Rows) ([]model.Post, error) {
	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

// UpdatePost applies a sparse update and refreshes updated_at.
func (db *DB) UpdatePost(ctx context.Context, id int64, upd model.PostUpdate) (*model.Post, error) {
	p, err := db.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.IsPinned != nil {
		p.IsPinned = *upd.IsPinned
	}
	p.UpdatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`UPDATE posts SET content = ?, is_pinned = ?, updated_at = ? WHERE id = ?`,
		p.Content, p.IsPinned, p.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating post %d: %w", id, err)
	}

	return p, nil
}

// DeletePost removes the post and decrements the author's post_count, plus
// the parent's reply_count when deleting a reply. Counters are adjusted
// with atomic decrements in the same transaction as the delete, matching
// the increment path on create. Replies of a deleted post are kept; they
// just become unreachable through the replies listing.
func (db *DB) DeletePost(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var userID int64
		var parentID *int64
		err := tx.QueryRowContext(ctx,
			`SELECT user_id, parent_post_id FROM posts WHERE id = ?`, id,
		).Scan(&userID, &parentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return apperror.NotFound("post", id)
			}
			return fmt.Errorf("sqlite: reading post %d for delete: %w", id, err)
		}

		// Likes reference the post with a foreign key; remove them first.
		if _, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting likes of post %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting post %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET post_count = post_count - 1 WHERE id = ?`, userID,
		); err != nil {
			return fmt.Errorf("sqlite: decrementing post_count for user %d: %w", userID, err)
		}

		if parentID != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE posts SET reply_count = reply_count - 1 WHERE id = ?`, *parentID,
			); err != nil {
				return fmt.Errorf("sqlite: decrementing reply_count for post %d: %w", *parentID, err)
			}
		}

		return nil
	})
}
