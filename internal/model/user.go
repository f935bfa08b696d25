// Package model defines the data structures used throughout the application.
// Structs here carry no behaviour beyond small helpers; validation lives in
// the service layer and persistence in the repository layer.
package model

import "time"

// User represents a registered account.
//
// FollowerCount, FollowingCount and PostCount are denormalized counters.
// They are maintained incrementally by the repository layer inside the same
// SQL transaction as the row change that affects them, never recomputed by
// scanning. The invariant is:
//
//	follower_count(U)  == number of follow rows where following_id = U.ID
//	following_count(U) == number of follow rows where follower_id  = U.ID
//	post_count(U)      == number of post rows where user_id = U.ID
//
// PasswordHash and GitHubID are authentication details and never serialized.
// GitHubID is nil for accounts registered with a password.
type User struct {
	ID             int64     `json:"id"              db:"id"`
	Username       string    `json:"username"        db:"username"`
	Email          string    `json:"email"           db:"email"`
	DisplayName    string    `json:"display_name"    db:"display_name"`
	Bio            string    `json:"bio"             db:"bio"`
	AvatarURL      string    `json:"avatar_url"      db:"avatar_url"`
	IsVerified     bool      `json:"is_verified"     db:"is_verified"`
	FollowerCount  int64     `json:"follower_count"  db:"follower_count"`
	FollowingCount int64     `json:"following_count" db:"following_count"`
	PostCount      int64     `json:"post_count"      db:"post_count"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"      db:"updated_at"`

	PasswordHash string `json:"-" db:"password_hash"`
	GitHubID     *int64 `json:"-" db:"github_id"`
}

// UserUpdate is a sparse profile update. A nil field leaves the stored value
// untouched; a non-nil field replaces it (a JSON null in the request maps to
// a pointer to the zero value, so explicit nulls clear the field).
type UserUpdate struct {
	DisplayName *string
	Bio         *string
	AvatarURL   *string
}
