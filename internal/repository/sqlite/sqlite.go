// Package sqlite implements the repository interfaces on SQLite via
// modernc.org/sqlite, a pure Go translation of SQLite: no CGo, easy
// cross-compilation, and ":memory:" databases for fast isolated tests.
//
// Storage conventions:
//   - ids are INTEGER PRIMARY KEY AUTOINCREMENT (server-generated int64)
//   - prices/amounts are stored as exact two-decimal TEXT and converted to
//     float64 at this boundary (see priceText / parsePrice)
//   - media URL lists are stored as JSON text
//   - denormalized counters live on the owning row and are only ever
//     mutated with atomic "SET c = c + 1" updates inside the same
//     transaction as the row change they mirror
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DB wraps a sql.DB connection pool and implements every repository
// interface in internal/repository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// A ":memory:" database exists per connection; without capping the
	// pool, each pooled connection would see its own empty database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress; the
	// default journal mode locks the whole file on every write.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New().
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps this safe to
// run on every startup.
func (db *DB) migrate() error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				username        TEXT NOT NULL UNIQUE,
				email           TEXT NOT NULL UNIQUE,
				display_name    TEXT NOT NULL DEFAULT '',
				bio             TEXT NOT NULL DEFAULT '',
				avatar_url      TEXT NOT NULL DEFAULT '',
				is_verified     INTEGER NOT NULL DEFAULT 0,
				follower_count  INTEGER NOT NULL DEFAULT 0,
				following_count INTEGER NOT NULL DEFAULT 0,
				post_count      INTEGER NOT NULL DEFAULT 0,
				password_hash   TEXT NOT NULL DEFAULT '',
				github_id       INTEGER UNIQUE,
				created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			-- username lookup is case-insensitive; storage stays case-sensitive
			CREATE INDEX IF NOT EXISTS idx_users_username_nocase
				ON users(username COLLATE NOCASE);
		`},
		{"posts", `
			CREATE TABLE IF NOT EXISTS posts (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id        INTEGER NOT NULL REFERENCES users(id),
				content        TEXT NOT NULL,
				media_urls     TEXT NOT NULL DEFAULT '[]',
				like_count     INTEGER NOT NULL DEFAULT 0,
				repost_count   INTEGER NOT NULL DEFAULT 0,
				reply_count    INTEGER NOT NULL DEFAULT 0,
				is_pinned      INTEGER NOT NULL DEFAULT 0,
				-- no FK on parent: deleting a post keeps its replies, which
				-- then point at a gone id and drop out of reply listings
				parent_post_id INTEGER,
				created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
			CREATE INDEX IF NOT EXISTS idx_posts_parent ON posts(parent_post_id);
			CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
		`},
		{"listings", `
			CREATE TABLE IF NOT EXISTS listings (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id     INTEGER NOT NULL REFERENCES users(id),
				title       TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				price       TEXT NOT NULL,
				currency    TEXT NOT NULL,
				category    TEXT NOT NULL DEFAULT '',
				condition   TEXT NOT NULL,
				location    TEXT NOT NULL DEFAULT '',
				media_urls  TEXT NOT NULL DEFAULT '[]',
				is_active   INTEGER NOT NULL DEFAULT 1,
				view_count  INTEGER NOT NULL DEFAULT 0,
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_listings_user_id ON listings(user_id);
			CREATE INDEX IF NOT EXISTS idx_listings_category ON listings(category);
		`},
		{"follows", `
			CREATE TABLE IF NOT EXISTS follows (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				follower_id  INTEGER NOT NULL REFERENCES users(id),
				following_id INTEGER NOT NULL REFERENCES users(id),
				created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(follower_id, following_id)
			);
			CREATE INDEX IF NOT EXISTS idx_follows_following ON follows(following_id);
		`},
		{"likes", `
			CREATE TABLE IF NOT EXISTS likes (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id    INTEGER NOT NULL REFERENCES users(id),
				post_id    INTEGER NOT NULL REFERENCES posts(id),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(user_id, post_id)
			);
			CREATE INDEX IF NOT EXISTS idx_likes_post_id ON likes(post_id);
		`},
		{"transactions", `
			CREATE TABLE IF NOT EXISTS transactions (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				reference      TEXT NOT NULL UNIQUE,
				listing_id     INTEGER NOT NULL REFERENCES listings(id),
				buyer_id       INTEGER NOT NULL REFERENCES users(id),
				seller_id      INTEGER NOT NULL REFERENCES users(id),
				amount         TEXT NOT NULL,
				currency       TEXT NOT NULL,
				status         TEXT NOT NULL DEFAULT 'pending',
				payment_method TEXT NOT NULL DEFAULT '',
				created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_buyer ON transactions(buyer_id);
			CREATE INDEX IF NOT EXISTS idx_transactions_seller ON transactions(seller_id);
			CREATE INDEX IF NOT EXISTS idx_transactions_listing ON transactions(listing_id);
			-- Partial unique index: at most one PENDING transaction per
			-- (listing, buyer). Two concurrent creates cannot both insert;
			-- the loser gets a constraint error and returns the winner's row.
			CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_pending
				ON transactions(listing_id, buyer_id) WHERE status = 'pending';
		`},
		{"notifications", `
			CREATE TABLE IF NOT EXISTS notifications (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id    INTEGER NOT NULL REFERENCES users(id),
				type       TEXT NOT NULL,
				title      TEXT NOT NULL,
				message    TEXT NOT NULL DEFAULT '',
				related_id INTEGER,
				is_read    INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);
		`},
	}

	for _, s := range stmts {
		if _, err := db.conn.Exec(s.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", s.name, err)
		}
	}

	return nil
}

// withTx runs fn inside a transaction, committing on nil and rolling back
// on error. Every edge-plus-counter mutation in this package goes through
// here so the pair either both land or both don't.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. The driver exposes no typed error for this, so we match on the
// message, which is stable across SQLite versions.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// lowerLike lowercases a user-supplied LIKE fragment. SQLite's lower() only
// folds ASCII, so we fold the Go side the same way for a consistent match.
func lowerLike(s string) string {
	return strings.ToLower(s)
}

// priceText formats a monetary value as exact two-decimal text for storage.
func priceText(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// parsePrice converts stored decimal text back to the boundary float64.
func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("sqlite: parsing stored price %q: %w", s, err)
	}
	return v, nil
}

// urlsText encodes a media URL list as JSON for storage. A nil slice is
// stored as the empty list so round-trips always yield [].
func urlsText(urls []string) (string, error) {
	if urls == nil {
		urls = []string{}
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding media urls: %w", err)
	}
	return string(b), nil
}

// parseURLs decodes a stored media URL list.
func parseURLs(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(s), &urls); err != nil {
		return nil, fmt.Errorf("sqlite: decoding media urls: %w", err)
	}
	return urls, nil
}
