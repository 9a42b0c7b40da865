package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const listingSelect = `SELECT l.id, l.title, l.creator, l.created_at,
	(SELECT COUNT(1) FROM listing_items i WHERE i.listing_id = l.id)
	FROM listings l`

const itemColumns = "id, listing_id, entered, permanent, added_at"

// CreateListing stores a new, empty listing.
func (s *Store) CreateListing(ctx context.Context, title, creator string) (*Listing, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		"INSERT INTO listings (title, creator, created_at) VALUES (?, ?, ?)",
		title, creator, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("listing id: %w", err)
	}
	return &Listing{ID: id, Title: title, Creator: creator, CreatedAt: now}, nil
}

// GetListing returns ErrNotFound for unknown ids.
func (s *Store) GetListing(ctx context.Context, id int64) (*Listing, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), listingSelect+" WHERE l.id = ?", id)
	listing, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %d: %w", id, err)
	}
	return listing, nil
}

// ListListings returns listings newest first. An empty creator lists everyone's.
func (s *Store) ListListings(ctx context.Context, creator string) ([]Listing, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)
	if creator == "" {
		rows, err = s.db.QueryContext(ctx, listingSelect+" ORDER BY l.id DESC")
	} else {
		rows, err = s.db.QueryContext(ctx, listingSelect+" WHERE l.creator = ? ORDER BY l.id DESC", creator)
	}
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()
	var out []Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *listing)
	}
	return out, rows.Err()
}

// RenameListing replaces the title of listing id.
func (s *Store) RenameListing(ctx context.Context, id int64, title string) error {
	res, err := s.execWithRetry(ctx, "UPDATE listings SET title = ? WHERE id = ?", title, id)
	if err != nil {
		return fmt.Errorf("rename listing %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	return nil
}

// AddItem appends entered to the listing. ErrDuplicateItem is returned when
// the listing already holds the same identifier.
func (s *Store) AddItem(ctx context.Context, listingID int64, entered string, permanent bool) (*ListingItem, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		"INSERT INTO listing_items (listing_id, entered, permanent, added_at) VALUES (?, ?, ?, ?)",
		listingID, entered, boolToInt(permanent), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("add %s to listing %d: %w", entered, listingID, ErrDuplicateItem)
		}
		return nil, fmt.Errorf("add %s to listing %d: %w", entered, listingID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("item id: %w", err)
	}
	return &ListingItem{ID: id, ListingID: listingID, Entered: entered, Permanent: permanent, AddedAt: now}, nil
}

// GetItem returns ErrNotFound for unknown ids.
func (s *Store) GetItem(ctx context.Context, itemID int64) (*ListingItem, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+itemColumns+" FROM listing_items WHERE id = ?", itemID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", itemID, err)
	}
	return item, nil
}

// ListItems returns the items of a listing in the order they were added.
func (s *Store) ListItems(ctx context.Context, listingID int64) ([]ListingItem, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+itemColumns+" FROM listing_items WHERE listing_id = ? ORDER BY id", listingID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()
	var out []ListingItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

// DeleteItem removes one item.
func (s *Store) DeleteItem(ctx context.Context, itemID int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM listing_items WHERE id = ?", itemID)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", itemID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return nil
}
