package model

import "time"

// Listing condition values. Stored as plain strings; CreateListing and
// UpdateListing reject anything outside this set.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// ValidCondition reports whether s is one of the allowed condition values.
func ValidCondition(s string) bool {
	switch s {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Listing is a marketplace item offered by a seller (UserID).
//
// Price crosses the API boundary as a float64 but is stored as exact
// two-decimal text to avoid binary floating-point drift; the sqlite
// repository converts at the storage boundary.
//
// ViewCount is incremented every time the listing is fetched by id. That is
// a side effect of a read, which is unusual, but it is part of the contract
// callers depend on.
type Listing struct {
	ID          int64     `json:"id"          db:"id"`
	UserID      int64     `json:"user_id"     db:"user_id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price"       db:"price"`
	Currency    string    `json:"currency"    db:"currency"`
	Category    string    `json:"category"    db:"category"`
	Condition   string    `json:"condition"   db:"condition"`
	Location    string    `json:"location"    db:"location"`
	MediaURLs   []string  `json:"media_urls"  db:"media_urls"`
	IsActive    bool      `json:"is_active"   db:"is_active"`
	ViewCount   int64     `json:"view_count"  db:"view_count"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"  db:"updated_at"`
}

// ListingUpdate is a sparse listing update. Nil fields are left untouched.
type ListingUpdate struct {
	Title       *string
	Description *string
	Price       *float64
	Currency    *string
	Category    *string
	Condition   *string
	Location    *string
	MediaURLs   *[]string
	IsActive    *bool
}
