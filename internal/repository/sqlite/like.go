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

var _ repository.LikeRepository = (*DB)(nil)

// CreateLike inserts the like and increments the post's like_count as a
// single all-or-nothing unit. The UNIQUE(user_id, post_id) constraint
// converts a duplicate into ErrConflict before the counter moves.
func (db *DB) CreateLike(ctx context.Context, like *model.Like) error {
	like.CreatedAt = time.Now().UTC()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO likes (user_id, post_id, created_at) VALUES (?, ?, ?)`,
			like.UserID, like.PostID, like.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("like already exists")
			}
			return fmt.Errorf("sqlite: creating like (user %d, post %d): %w",
				like.UserID, like.PostID, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new like id: %w", err)
		}
		like.ID = id

		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET like_count = like_count + 1 WHERE id = ?`,
			like.PostID,
		); err != nil {
			return fmt.Errorf("sqlite: incrementing like_count for post %d: %w", like.PostID, err)
		}

		return nil
	})
}

// DeleteLike removes the like and decrements like_count in one
// transaction. Returns ErrNotFound if the pair is absent.
func (db *DB) DeleteLike(ctx context.Context, userID, postID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE user_id = ? AND post_id = ?`,
			userID, postID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting like (user %d, post %d): %w", userID, postID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if affected == 0 {
			return apperror.NotFoundMsg("like not found")
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET like_count = like_count - 1 WHERE id = ?`,
			postID,
		); err != nil {
			return fmt.Errorf("sqlite: decrementing like_count for post %d: %w", postID, err)
		}

		return nil
	})
}

// GetLike returns the like for (user, post), or (nil, nil) if absent.
func (db *DB) GetLike(ctx context.Context, userID, postID int64) (*model.Like, error) {
	var l model.Like
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, post_id, created_at FROM likes
		 WHERE user_id = ? AND post_id = ?`,
		userID, postID,
	).Scan(&l.ID, &l.UserID, &l.PostID, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting like (user %d, post %d): %w", userID, postID, err)
	}
	return &l, nil
}
