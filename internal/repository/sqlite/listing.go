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

var _ repository.ListingRepository = (*DB)(nil)

const listingColumns = `id, user_id, title, description, price, currency,
	category, condition, location, media_urls, is_active, view_count,
	created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }, l *model.Listing) error {
	var price, urls string
	if err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.Title,
		&l.Description,
		&price,
		&l.Currency,
		&l.Category,
		&l.Condition,
		&l.Location,
		&urls,
		&l.IsActive,
		&l.ViewCount,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return err
	}

	// Response shaping: decimal text in storage, numeric at the boundary.
	v, err := parsePrice(price)
	if err != nil {
		return err
	}
	l.Price = v

	parsed, err := parseURLs(urls)
	if err != nil {
		return err
	}
	l.MediaURLs = parsed
	return nil
}

// CreateListing inserts a new listing. New listings are active with a zero
// view count.
func (db *DB) CreateListing(ctx context.Context, listing *model.Listing) error {
	urls, err := urlsText(listing.MediaURLs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	listing.IsActive = true
	listing.ViewCount = 0

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO listings (user_id, title, description, price, currency,
			category, condition, location, media_urls, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		listing.UserID,
		listing.Title,
		listing.Description,
		priceText(listing.Price),
		listing.Currency,
		listing.Category,
		listing.Condition,
		listing.Location,
		urls,
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating listing: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new listing id: %w", err)
	}
	listing.ID = id

	return nil
}

// GetListingByID retrieves a listing by id, incrementing its view_count
// and refreshing updated_at as a side effect of the read. Counting views
// in a read is unusual but part of the contract: sequential fetches of a
// fresh listing observe view counts 1, 2, 3.
//
// The increment runs first, then the select, inside one transaction, so
// the returned row always shows the count that includes this read.
func (db *DB) GetListingByID(ctx context.Context, id int64) (*model.Listing, error) {
	var l model.Listing
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE listings SET view_count = view_count + 1, updated_at = ?
			 WHERE id = ?`,
			time.Now().UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("sqlite: counting view for listing %d: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if affected == 0 {
			return apperror.NotFound("listing", id)
		}

		if err := scanListing(tx.QueryRowContext(ctx,
			`SELECT `+listingColumns+` FROM listings WHERE id = ?`, id), &l); err != nil {
			return fmt.Errorf("sqlite: getting listing %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// LookupListing is a plain read with no view-count side effect, used by
// validation chains (e.g. transaction creation) and update paths.
func (db *DB) LookupListing(ctx context.Context, id int64) (*model.Listing, error) {
	var l model.Listing
	err := scanListing(db.conn.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`, id), &l)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("listing", id)
		}
		return nil, fmt.Errorf("sqlite: looking up listing %d: %w", id, err)
	}
	return &l, nil
}

// listingQuery builds the WHERE clause for a filter. Each filter is
// independent and optional; they combine with AND.
func listingQuery(f repository.ListingFilter, extra string, extraArgs ...any) (string, []any) {
	where := []string{}
	args := []any{}

	if extra != "" {
		where = append(where, extra)
		args = append(args, extraArgs...)
	}
	if f.Query != "" {
		// Case-insensitive substring against title OR description. An
		// empty query never reaches here, so it matches everything.
		where = append(where, `(lower(title) LIKE ? OR lower(description) LIKE ?)`)
		pattern := "%" + lowerLike(f.Query) + "%"
		args = append(args, pattern, pattern)
	}
	if f.Category != nil {
		where = append(where, `category = ?`)
		args = append(args, *f.Category)
	}
	if f.Location != nil {
		where = append(where, `lower(location) LIKE ?`)
		args = append(args, "%"+lowerLike(*f.Location)+"%")
	}
	if f.MinPrice != nil {
		// Prices are stored as text; compare numerically. Bounds are
		// inclusive.
		where = append(where, `CAST(price AS REAL) >= ?`)
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, `CAST(price AS REAL) <= ?`)
		args = append(args, *f.MaxPrice)
	}
	if f.Condition != nil {
		where = append(where, `condition = ?`)
		args = append(args, *f.Condition)
	}
	if f.IsActive != nil {
		where = append(where, `is_active = ?`)
		args = append(args, *f.IsActive)
	}

	q := `SELECT ` + listingColumns + ` FROM listings`
	if len(where) > 0 {
		q += ` WHERE ` + where[0]
		for _, w := range where[1:] {
			q += ` AND ` + w
		}
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

	return q, args
}

// ListListings returns listings matching the filter, newest first.
func (db *DB) ListListings(ctx context.Context, f repository.ListingFilter) ([]model.Listing, error) {
	q, args := listingQuery(f, "")
	return db.queryListings(ctx, q, args)
}

// ListListingsByUser returns a seller's listings matching the filter,
// newest first.
func (db *DB) ListListingsByUser(ctx context.Context, userID int64, f repository.ListingFilter) ([]model.Listing, error) {
	q, args := listingQuery(f, `user_id = ?`, userID)
	return db.queryListings(ctx, q, args)
}

func (db *DB) queryListings(ctx context.Context, q string, args []any) ([]model.Listing, error) {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing listings: %w", err)
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		var l model.Listing
		if err := scanListing(rows, &l); err != nil {
			return nil, fmt.Errorf("sqlite: scanning listing row: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating listings: %w", err)
	}
	return listings, nil
}

// UpdateListing applies a sparse update and refreshes updated_at.
func (db *DB) UpdateListing(ctx context.Context, id int64, upd model.ListingUpdate) (*model.Listing, error) {
	l, err := db.LookupListing(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		l.Title = *upd.Title
	}
	if upd.Description != nil {
		l.Description = *upd.Description
	}
	if upd.Price != nil {
		l.Price = *upd.Price
	}
	if upd.Currency != nil {
		l.Currency = *upd.Currency
	}
	if upd.Category != nil {
		l.Category = *upd.Category
	}
	if upd.Condition != nil {
		l.Condition = *upd.Condition
	}
	if upd.Location != nil {
		l.Location = *upd.Location
	}
	if upd.MediaURLs != nil {
		l.MediaURLs = *upd.MediaURLs
	}
	if upd.IsActive != nil {
		l.IsActive = *upd.IsActive
	}
	l.UpdatedAt = time.Now().UTC()

	urls, err := urlsText(l.MediaURLs)
	if err != nil {
		return nil, err
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE listings SET title = ?, description = ?, price = ?, currency = ?,
			category = ?, condition = ?, location = ?, media_urls = ?,
			is_active = ?, updated_at = ?
		 WHERE id = ?`,
		l.Title, l.Description, priceText(l.Price), l.Currency,
		l.Category, l.Condition, l.Location, urls,
		l.IsActive, l.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating listing %d: %w", id, err)
	}

	return l, nil
}

// DeactivateListing sets is_active = false. Deactivating an already
// inactive listing succeeds; only a missing id is an error.
func (db *DB) DeactivateListing(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE listings SET is_active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deactivating listing %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("listing", id)
	}
	return nil
}
