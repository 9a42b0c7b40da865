package registry

import (
	"context"
	"time"
)

// Records covers the registry side: lookups, import, claims, and box audits.
type Records interface {
	// FindByIdentifier returns (nil, nil) when no record has exactly id.
	FindByIdentifier(ctx context.Context, id string) (*Record, error)
	// FindByPrefixAndSubstring returns, in registry order, the records whose
	// identifier starts with prefix and contains substring.
	FindByPrefixAndSubstring(ctx context.Context, prefix, substring string) ([]Record, error)
	UpsertRecords(ctx context.Context, records []Record) (UpsertResult, error)
	MarkFound(ctx context.Context, recordID int64, claimant string, at time.Time, listingID int64) error
	FoundInListing(ctx context.Context, listingID int64) ([]Record, error)
	ListBoxes(ctx context.Context) ([]string, error)
	RecordsInBox(ctx context.Context, box string) ([]Record, error)
	CountRecords(ctx context.Context) (int, error)
}

// Listings covers listing and listing-item bookkeeping.
type Listings interface {
	CreateListing(ctx context.Context, title, creator string) (*Listing, error)
	GetListing(ctx context.Context, id int64) (*Listing, error)
	ListListings(ctx context.Context, creator string) ([]Listing, error)
	RenameListing(ctx context.Context, id int64, title string) error
	AddItem(ctx context.Context, listingID int64, entered string, permanent bool) (*ListingItem, error)
	GetItem(ctx context.Context, itemID int64) (*ListingItem, error)
	ListItems(ctx context.Context, listingID int64) ([]ListingItem, error)
	DeleteItem(ctx context.Context, itemID int64) error
}

// Backend is a complete registry implementation.
type Backend interface {
	Records
	Listings
	Ping(ctx context.Context) error
	Close() error
}

var _ Backend = (*Store)(nil)
