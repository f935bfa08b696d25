package model

import "time"

// Notification types. RelatedID points at the entity the notification is
// about (a post, a follow, a transaction); interpretation is left to the
// client, keyed by Type.
const (
	NotificationTypeLike        = "like"
	NotificationTypeFollow      = "follow"
	NotificationTypeMention     = "mention"
	NotificationTypeReply       = "reply"
	NotificationTypeTransaction = "transaction"
)

// ValidNotificationType reports whether s is one of the known types.
func ValidNotificationType(s string) bool {
	switch s {
	case NotificationTypeLike, NotificationTypeFollow, NotificationTypeMention,
		NotificationTypeReply, NotificationTypeTransaction:
		return true
	}
	return false
}

// Notification is a message delivered to a user.
type Notification struct {
	ID        int64     `json:"id"         db:"id"`
	UserID    int64     `json:"user_id"    db:"user_id"`
	Type      string    `json:"type"       db:"type"`
	Title     string    `json:"title"      db:"title"`
	Message   string    `json:"message"    db:"message"`
	RelatedID *int64    `json:"related_id" db:"related_id"`
	IsRead    bool      `json:"is_read"    db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
