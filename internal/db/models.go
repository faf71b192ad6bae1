package db

import "time"

// WishlistEntry is one shopper's wishlist as the reminder engine sees it:
// the wishlist row joined with both possible recipient sources. The entry
// is created and mutated entirely by the storefront plugin; this system
// only reads it.
type WishlistEntry struct {
	WishlistID int64

	// OwnerEmail is the registered account email, if the wishlist owner
	// is a known user.
	OwnerEmail *string

	// GuestEmail comes from the guest-email side table keyed by
	// wishlist id.
	GuestEmail *string

	// CreatedAt anchors all window computations and is immutable once
	// set.
	CreatedAt time.Time

	ItemCount int
}

// Product is a catalog item referenced by a wishlist, joined only for
// email rendering.
type Product struct {
	ID       int64
	Title    string
	ImageURL string
}
