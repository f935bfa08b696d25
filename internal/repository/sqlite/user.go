package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/appdotbuilder/amancores/internal/apperror"
	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
)

// Compile-time check that *DB implements repository.UserRepository.
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, display_name, bio, avatar_url,
	is_verified, follower_count, following_count, post_count,
	password_hash, github_id, created_at, updated_at`

// prefixedUserColumns is userColumns qualified with the "u" alias, for
// queries that join users against another table.
const prefixedUserColumns = `u.id, u.username, u.email, u.display_name,
	u.bio, u.avatar_url, u.is_verified, u.follower_count, u.following_count,
	u.post_count, u.password_hash, u.github_id, u.created_at, u.updated_at`

// scanUser reads one user row. Works for both *sql.Row and *sql.Rows via
// the shared Scan signature.
func scanUser(row interface{ Scan(...any) error }, u *model.User) error {
	return row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.DisplayName,
		&u.Bio,
		&u.AvatarURL,
		&u.IsVerified,
		&u.FollowerCount,
		&u.FollowingCount,
		&u.PostCount,
		&u.PasswordHash,
		&u.GitHubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

// CreateUser inserts a new user. Username and email carry UNIQUE constraints;
// violations are translated to ErrConflict naming the offending field.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, email, display_name, bio, avatar_url,
			password_hash, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Username,
		user.Email,
		user.DisplayName,
		user.Bio,
		user.AvatarURL,
		user.PasswordHash,
		user.GitHubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(uniqueUserMessage(err))
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id

	return nil
}

// uniqueUserMessage picks a message based on which UNIQUE index failed.
func uniqueUserMessage(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return "username is already taken"
	case strings.Contains(msg, "users.email"):
		return "email is already registered"
	default:
		return "user already exists"
	}
}

// GetUserByID retrieves a user by id.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id), &u)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return &u, nil
}

// GetUserByUsername retrieves a user by username, case-insensitively.
// "Alice" and "alice" resolve to the same row even though the stored
// username keeps its original casing.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE username = ? COLLATE NOCASE`, username), &u)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMsg(
				fmt.Sprintf("user not found with username %q", username))
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return &u, nil
}

// ListUsers returns all users, oldest first.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
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
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// UpdateUser applies a sparse profile update. Fetch-then-write keeps the
// untouched columns as they were and lets us return the full record.
func (db *DB) UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	u, err := db.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
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
	u.UpdatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET display_name = ?, bio = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		u.DisplayName, u.Bio, u.AvatarURL, u.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating user %d: %w", id, err)
	}

	return u, nil
}

// UpsertUserByGitHubID inserts the user, or refreshes the existing row keyed by
// github_id. Existing accounts keep their id, username and counters; only
// the profile fields GitHub can change are rewritten.
func (db *DB) UpsertUserByGitHubID(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upsert requires a github id")
	}

	var existingID int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, *user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	if err == nil {
		user.ID = existingID
		user.UpdatedAt = time.Now().UTC()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
			user.Email, user.AvatarURL, user.UpdatedAt, existingID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: refreshing github user %d: %w", existingID, err)
		}

		fresh, err := db.GetUserByID(ctx, existingID)
		if err != nil {
			return err
		}
		*user = *fresh
		return nil
	}

	return db.CreateUser(ctx, user)
}
