package model

import "time"

// TransactionStatusPending is the status every new transaction starts in.
// Status is otherwise a free-form string; updateTransactionStatus persists
// whatever the caller supplies without a transition table.
const TransactionStatusPending = "pending"

// Transaction records a purchase of a listing by a buyer from a seller.
//
// At creation time the amount and currency must match the listing's price
// and currency, the seller must own the listing, and the buyer must be a
// different user. At most one pending transaction exists per
// (listing, buyer) pair — retried creates return the existing row.
//
// Reference is a sortable, URL-safe code (xid) assigned at creation, for
// humans and receipts; the numeric ID stays the primary key.
type Transaction struct {
	ID            int64     `json:"id"             db:"id"`
	Reference     string    `json:"reference"      db:"reference"`
	ListingID     int64     `json:"listing_id"     db:"listing_id"`
	BuyerID       int64     `json:"buyer_id"       db:"buyer_id"`
	SellerID      int64     `json:"seller_id"      db:"seller_id"`
	Amount        float64   `json:"amount"         db:"amount"`
	Currency      string    `json:"currency"       db:"currency"`
	Status        string    `json:"status"         db:"status"`
	PaymentMethod string    `json:"payment_method" db:"payment_method"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"     db:"updated_at"`
}
