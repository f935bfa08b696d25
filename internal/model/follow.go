package model

import "time"

// Follow is a directed edge: FollowerID follows FollowingID. The ordered
// pair is unique, and directionality matters — (A,B) and (B,A) are
// independent edges. Self-loops are rejected before they reach storage.
type Follow struct {
	ID          int64     `json:"id"           db:"id"`
	FollowerID  int64     `json:"follower_id"  db:"follower_id"`
	FollowingID int64     `json:"following_id" db:"following_id"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}
