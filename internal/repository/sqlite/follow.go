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

var _ repository.FollowRepository = (*DB)(nil)

// CreateFollow inserts the edge and adjusts both denormalized counters in
// one transaction: following_count on the follower, follower_count on the
// followed user. The UNIQUE(follower_id, following_id) constraint turns a
// concurrent duplicate into ErrConflict, so the counters can never be
// bumped twice for the same edge.
func (db *DB) CreateFollow(ctx context.Context, follow *model.Follow) error {
	follow.CreatedAt = time.Now().UTC()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO follows (follower_id, following_id, created_at)
			 VALUES (?, ?, ?)`,
			follow.FollowerID, follow.FollowingID, follow.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("follow relationship already exists")
			}
			return fmt.Errorf("sqlite: creating follow %d->%d: %w",
				follow.FollowerID, follow.FollowingID, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new follow id: %w", err)
		}
		follow.ID = id

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET following_count = following_count + 1 WHERE id = ?`,
			follow.FollowerID,
		); err != nil {
			return fmt.Errorf("sqlite: incrementing following_count for user %d: %w",
				follow.FollowerID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET follower_count = follower_count + 1 WHERE id = ?`,
			follow.FollowingID,
		); err != nil {
			return fmt.Errorf("sqlite: incrementing follower_count for user %d: %w",
				follow.FollowingID, err)
		}

		return nil
	})
}

// DeleteFollow removes the edge and decrements both counters in one
// transaction. Returns ErrNotFound if the edge does not exist.
func (db *DB) DeleteFollow(ctx context.Context, followerID, followingID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM follows WHERE follower_id = ? AND following_id = ?`,
			followerID, followingID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting follow %d->%d: %w", followerID, followingID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if affected == 0 {
			return apperror.NotFoundMsg("follow relationship not found")
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET following_count = following_count - 1 WHERE id = ?`,
			followerID,
		); err != nil {
			return fmt.Errorf("sqlite: decrementing following_count for user %d: %w", followerID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET follower_count = follower_count - 1 WHERE id = ?`,
			followingID,
		); err != nil {
			return fmt.Errorf("sqlite: decrementing follower_count for user %d: %w", followingID, err)
		}

		return nil
	})
}

// GetFollow returns the edge for the ordered pair, or (nil, nil) if absent.
// Direction matters: (A,B) and (B,A) are independent rows.
func (db *DB) GetFollow(ctx context.Context, followerID, followingID int64) (*model.Follow, error) {
	var f model.Follow
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, follower_id, following_id, created_at FROM follows
		 WHERE follower_id = ? AND following_id = ?`,
		followerID, followingID,
	).Scan(&f.ID, &f.FollowerID, &f.FollowingID, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting follow %d->%d: %w", followerID, followingID, err)
	}
	return &f, nil
}

// ListFollowers returns the full user records of everyone following userID,
// most recent follow first.
func (db *DB) ListFollowers(ctx context.Context, userID int64) ([]model.User, error) {
	return db.followEdgeUsers(ctx,
		`SELECT `+prefixedUserColumns+` FROM users u
		 JOIN follows f ON f.follower_id = u.id
		 WHERE f.following_id = ?
		 ORDER BY f.created_at DESC, f.id DESC`,
		userID)
}

// ListFollowing returns the full user records of everyone userID follows,
// most recent follow first.
func (db *DB) ListFollowing(ctx context.Context, userID int64) ([]model.User, error) {
	return db.followEdgeUsers(ctx,
		`SELECT `+prefixedUserColumns+` FROM users u
		 JOIN follows f ON f.following_id = u.id
		 WHERE f.follower_id = ?
		 ORDER BY f.created_at DESC, f.id DESC`,
		userID)
}

func (db *DB) followEdgeUsers(ctx context.Context, query string, userID int64) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing follow edge users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating follow edge users: %w", err)
	}
	return users, nil
}
