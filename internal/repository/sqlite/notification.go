package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/appdotbuilder/amancores/internal/model"
	"github.com/appdotbuilder/amancores/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

// CreateNotification inserts a notification, unread.
func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	n.CreatedAt = time.Now().UTC()
	n.IsRead = false

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO notifications (user_id, type, title, message, related_id, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		n.UserID, n.Type, n.Title, n.Message, n.RelatedID, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating notification: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new notification id: %w", err)
	}
	n.ID = id

	return nil
}

// MarkNotificationRead flips is_read on one notification. A missing id is
// reported as (false, nil), not an error — the caller gets a boolean.
func (db *DB) MarkNotificationRead(ctx context.Context, id int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: marking notification %d read: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkAllNotificationsRead marks every notification of a user read.
// Succeeds when the user has none; the service checks the user exists.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking notifications read for user %d: %w", userID, err)
	}
	return nil
}

// ListNotificationsByUser returns a user's notifications, newest first,
// optionally narrowed by read state and type.
func (db *DB) ListNotificationsByUser(ctx context.Context, userID int64, f repository.NotificationFilter) ([]model.Notification, error) {
	q := `SELECT id, user_id, type, title, message, related_id, is_read, created_at
		 FROM notifications WHERE user_id = ?`
	args := []any{userID}

	if f.IsRead != nil {
		q += ` AND is_read = ?`
		args = append(args, *f.IsRead)
	}
	if f.Type != nil {
		q += ` AND type = ?`
		args = append(args, *f.Type)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications for user %d: %w", userID, err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.RelatedID, &n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notifications: %w", err)
	}
	return notifications, nil
}

// CountUnreadNotifications returns how many unread notifications a user has.
func (db *DB) CountUnreadNotifications(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting unread notifications for user %d: %w", userID, err)
	}
	return count, nil
}
