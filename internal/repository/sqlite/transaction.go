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

var _ repository.TransactionRepository = (*DB)(nil)

const transactionColumns = `id, reference, listing_id, buyer_id, seller_id,
	amount, currency, status, payment_method, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }, t *model.Transaction) error {
	var amount string
	if err := row.Scan(
		&t.ID,
		&t.Reference,
		&t.ListingID,
		&t.BuyerID,
		&t.SellerID,
		&amount,
		&t.Currency,
		&t.Status,
		&t.PaymentMethod,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return err
	}
	v, err := parsePrice(amount)
	if err != nil {
		return err
	}
	t.Amount = v
	return nil
}

// CreateTransaction inserts a new transaction in status "pending".
//
// The idx_transactions_pending partial unique index guarantees at most one
// pending transaction per (listing, buyer). If a concurrent create slipped
// in between the service's idempotency check and this insert, the insert
// fails with ErrConflict and the service re-reads the winner's row — both
// callers end up observing the same transaction.
func (db *DB) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	txn.Status = model.TransactionStatusPending

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO transactions (reference, listing_id, buyer_id, seller_id,
			amount, currency, status, payment_method, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.Reference,
		txn.ListingID,
		txn.BuyerID,
		txn.SellerID,
		priceText(txn.Amount),
		txn.Currency,
		txn.Status,
		txn.PaymentMethod,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("pending transaction already exists for this listing and buyer")
		}
		return fmt.Errorf("sqlite: creating transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new transaction id: %w", err)
	}
	txn.ID = id

	return nil
}

// GetTransactionByID retrieves a transaction by id.
func (db *DB) GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var t model.Transaction
	err := scanTransaction(db.conn.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id), &t)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("transaction", id)
		}
		return nil, fmt.Errorf("sqlite: getting transaction %d: %w", id, err)
	}
	return &t, nil
}

// GetPendingTransaction returns the pending transaction for the
// (listing, buyer) pair, or (nil, nil) if none exists. The partial unique
// index guarantees there is at most one.
func (db *DB) GetPendingTransaction(ctx context.Context, listingID, buyerID int64) (*model.Transaction, error) {
	var t model.Transaction
	err := scanTransaction(db.conn.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE listing_id = ? AND buyer_id = ? AND status = ?`,
		listingID, buyerID, model.TransactionStatusPending), &t)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting pending transaction (listing %d, buyer %d): %w",
			listingID, buyerID, err)
	}
	return &t, nil
}

// ListTransactionsByUser returns the union of transactions where the user
// is buyer or seller, newest first.
func (db *DB) ListTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE buyer_id = ? OR seller_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListTransactionsByListing returns a listing's transactions, newest first.
func (db *DB) ListTransactionsByListing(ctx context.Context, listingID int64) ([]model.Transaction, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE listing_id = ?
		 ORDER BY created_at DESC, id DESC`,
		listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing transactions for listing %d: %w", listingID, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	txns := []model.Transaction{}
	for rows.Next() {
		var t model.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			return nil, fmt.Errorf("sqlite: scanning transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransactionStatus persists the caller-supplied status and
// refreshes updated_at. There is no transition table; the service layer
// only checks the string is non-empty.
func (db *DB) UpdateTransactionStatus(ctx context.Context, id int64, status string) (*model.Transaction, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE transactions SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating transaction %d status: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("transaction", id)
	}

	return db.GetTransactionByID(ctx, id)
}
