package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"permanentes/internal/registry"
)

const listingSelect = `SELECT l.id, l.title, l.creator, l.created_at,
	(SELECT COUNT(1) FROM listing_items i WHERE i.listing_id = l.id)::int
	FROM listings l`

const itemColumns = "id, listing_id, entered, permanent, added_at"

func scanListing(row pgx.CollectableRow) (registry.Listing, error) {
	var l registry.Listing
	err := row.Scan(&l.ID, &l.Title, &l.Creator, &l.CreatedAt, &l.ItemCount)
	return l, err
}

func scanItem(row pgx.CollectableRow) (registry.ListingItem, error) {
	var item registry.ListingItem
	err := row.Scan(&item.ID, &item.ListingID, &item.Entered, &item.Permanent, &item.AddedAt)
	return item, err
}

// CreateListing stores a new, empty listing.
func (s *Store) CreateListing(ctx context.Context, title, creator string) (*registry.Listing, error) {
	listing := registry.Listing{Title: title, Creator: creator}
	err := s.pool.QueryRow(ctx,
		"INSERT INTO listings (title, creator) VALUES ($1, $2) RETURNING id, created_at",
		title, creator,
	).Scan(&listing.ID, &listing.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	return &listing, nil
}

// GetListing returns registry.ErrNotFound for unknown ids.
func (s *Store) GetListing(ctx context.Context, id int64) (*registry.Listing, error) {
	rows, err := s.pool.Query(ctx, listingSelect+" WHERE l.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("get listing %d: %w", id, err)
	}
	listing, err := pgx.CollectExactlyOneRow(rows, scanListing)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("listing %d: %w", id, registry.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %d: %w", id, err)
	}
	return &listing, nil
}

// ListListings returns listings newest first. An empty creator lists everyone's.
func (s *Store) ListListings(ctx context.Context, creator string) ([]registry.Listing, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if creator == "" {
		rows, err = s.pool.Query(ctx, listingSelect+" ORDER BY l.id DESC")
	} else {
		rows, err = s.pool.Query(ctx, listingSelect+" WHERE l.creator = $1 ORDER BY l.id DESC", creator)
	}
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	return pgx.CollectRows(rows, scanListing)
}

// RenameListing replaces the title of listing id.
func (s *Store) RenameListing(ctx context.Context, id int64, title string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE listings SET title = $1 WHERE id = $2", title, id)
	if err != nil {
		return fmt.Errorf("rename listing %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing %d: %w", id, registry.ErrNotFound)
	}
	return nil
}

// AddItem appends entered to the listing; duplicates yield registry.ErrDuplicateItem.
func (s *Store) AddItem(ctx context.Context, listingID int64, entered string, permanent bool) (*registry.ListingItem, error) {
	item := registry.ListingItem{ListingID: listingID, Entered: entered, Permanent: permanent}
	err := s.pool.QueryRow(ctx,
		"INSERT INTO listing_items (listing_id, entered, permanent) VALUES ($1, $2, $3) RETURNING id, added_at",
		listingID, entered, permanent,
	).Scan(&item.ID, &item.AddedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("add %s to listing %d: %w", entered, listingID, registry.ErrDuplicateItem)
		}
		return nil, fmt.Errorf("add %s to listing %d: %w", entered, listingID, err)
	}
	return &item, nil
}

// GetItem returns registry.ErrNotFound for unknown ids.
func (s *Store) GetItem(ctx context.Context, itemID int64) (*registry.ListingItem, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+itemColumns+" FROM listing_items WHERE id = $1", itemID)
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", itemID, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, registry.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", itemID, err)
	}
	return &item, nil
}

// ListItems returns the items of a listing in the order they were added.
func (s *Store) ListItems(ctx context.Context, listingID int64) ([]registry.ListingItem, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+itemColumns+" FROM listing_items WHERE listing_id = $1 ORDER BY id", listingID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// DeleteItem removes one item.
func (s *Store) DeleteItem(ctx context.Context, itemID int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM listing_items WHERE id = $1", itemID)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %d: %w", itemID, registry.ErrNotFound)
	}
	return nil
}
