package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Repository reads wishlist data. All methods are pure reads; the
// storefront owns every mutation of these tables.
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates a wishlist store reader
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// EntriesCreatedBetween returns wishlists created inside [lo, hi] that
// hold at least one item, with both recipient sources joined in.
// Recipient precedence and the exact window boundary are applied by the
// caller. Ordered by wishlist id so runs and logs are reproducible.
func (r *Repository) EntriesCreatedBetween(ctx context.Context, lo, hi time.Time, limit int) ([]*WishlistEntry, error) {
	query := `
		SELECT w.id, w.created_at, u.email, g.email, COUNT(it.id)
		FROM wishlists w
		JOIN wishlist_items it ON it.wishlist_id = w.id
		LEFT JOIN users u ON u.id = w.owner_user_id
		LEFT JOIN wishlist_guest_emails g ON g.wishlist_id = w.id
		WHERE w.created_at BETWEEN $1 AND $2
		GROUP BY w.id, w.created_at, u.email, g.email
		ORDER BY w.id
		LIMIT $3
	`

	rows, err := r.db.Pool().Query(ctx, query, lo, hi, limit)
	if err != nil {
		return nil, fmt.Errorf("query wishlist entries: %w", err)
	}
	defer rows.Close()

	var entries []*WishlistEntry
	for rows.Next() {
		var e WishlistEntry
		if err := rows.Scan(&e.WishlistID, &e.CreatedAt, &e.OwnerEmail, &e.GuestEmail, &e.ItemCount); err != nil {
			return nil, fmt.Errorf("scan wishlist entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	r.logger.Debug("wishlist entries fetched",
		zap.Int("count", len(entries)),
		zap.Time("lo", lo),
		zap.Time("hi", hi),
	)

	return entries, nil
}

// ProductsForWishlist returns the most recently added products of a
// wishlist for email rendering, newest first.
func (r *Repository) ProductsForWishlist(ctx context.Context, wishlistID int64, limit int) ([]*Product, error) {
	query := `
		SELECT p.id, p.title, COALESCE(p.image_url, '')
		FROM wishlist_items it
		JOIN products p ON p.id = it.product_id
		WHERE it.wishlist_id = $1
		ORDER BY it.id DESC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, wishlistID, limit)
	if err != nil {
		return nil, fmt.Errorf("query wishlist products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return products, nil
}
