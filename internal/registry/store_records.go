package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// FindByIdentifier returns the record whose identifier equals id exactly.
func (s *Store) FindByIdentifier(ctx context.Context, id string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE identifier = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record %q: %w", id, err)
	}
	return rec, nil
}

// FindByPrefixAndSubstring runs the legacy candidate query in two stages: an
// indexed range scan on identifier for the prefix, then an in-memory
// substring filter. Results keep registry (id) order.
func (s *Store) FindByPrefixAndSubstring(ctx context.Context, prefix, substring string) ([]Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE identifier >= ? AND identifier < ? ORDER BY id",
		prefix, prefixUpperBound(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("query prefix %q: %w", prefix, err)
	}
	candidates, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("scan prefix %q: %w", prefix, err)
	}
	matched := candidates[:0]
	for _, rec := range candidates {
		if strings.Contains(rec.Identifier, substring) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// UpsertRecords inserts new identifiers and refreshes the descriptive fields
// of existing ones in one transaction. Claim fields are never touched.
func (s *Store) UpsertRecords(ctx context.Context, records []Record) (UpsertResult, error) {
	var result UpsertResult
	if len(records) == 0 {
		return result, nil
	}
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result = UpsertResult{}
		for _, rec := range records {
			if rec.Identifier == "" {
				continue
			}
			var status any = rec.Status
			if rec.StatusNull {
				status = nil
			}
			var existing int64
			err := tx.QueryRowContext(ctx, "SELECT id FROM records WHERE identifier = ?", rec.Identifier).Scan(&existing)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO records (identifier, status, class, subject, current_body, locator, status_detail, box, updated_at)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					rec.Identifier, status, nullableString(rec.Class), nullableString(rec.Subject),
					nullableString(rec.CurrentBody), nullableString(rec.Locator), nullableString(rec.StatusDetail),
					nullableString(rec.Box), now,
				); err != nil {
					return fmt.Errorf("insert %s: %w", rec.Identifier, err)
				}
				result.Created++
			case err != nil:
				return fmt.Errorf("lookup %s: %w", rec.Identifier, err)
			default:
				if _, err := tx.ExecContext(ctx,
					`UPDATE records SET status = ?, class = ?, subject = ?, current_body = ?, locator = ?,
					 status_detail = ?, box = ?, updated_at = ? WHERE id = ?`,
					status, nullableString(rec.Class), nullableString(rec.Subject),
					nullableString(rec.CurrentBody), nullableString(rec.Locator), nullableString(rec.StatusDetail),
					nullableString(rec.Box), now, existing,
				); err != nil {
					return fmt.Errorf("update %s: %w", rec.Identifier, err)
				}
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert records: %w", err)
	}
	return result, nil
}

// MarkFound records who separated the record, when, and from which listing.
func (s *Store) MarkFound(ctx context.Context, recordID int64, claimant string, at time.Time, listingID int64) error {
	res, err := s.execWithRetry(ctx,
		"UPDATE records SET found_by = ?, found_at = ?, found_listing_id = ? WHERE id = ?",
		claimant, formatTime(at), listingID, recordID,
	)
	if err != nil {
		return fmt.Errorf("mark record %d found: %w", recordID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark record %d found: %w", recordID, ErrNotFound)
	}
	return nil
}

// FoundInListing returns the records claimed through the given listing.
func (s *Store) FoundInListing(ctx context.Context, listingID int64) ([]Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE found_listing_id = ? ORDER BY found_at, id", listingID)
	if err != nil {
		return nil, fmt.Errorf("query found records: %w", err)
	}
	return scanRecords(rows)
}

// ListBoxes returns the distinct non-empty box labels, sorted.
func (s *Store) ListBoxes(ctx context.Context) ([]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT box FROM records WHERE box IS NOT NULL AND box <> '' ORDER BY box")
	if err != nil {
		return nil, fmt.Errorf("query boxes: %w", err)
	}
	defer rows.Close()
	var boxes []string
	for rows.Next() {
		var box string
		if err := rows.Scan(&box); err != nil {
			return nil, err
		}
		boxes = append(boxes, box)
	}
	return boxes, rows.Err()
}

// RecordsInBox returns the records stored in box, ordered by identifier.
func (s *Store) RecordsInBox(ctx context.Context, box string) ([]Record, error) {
	if box == "" {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE box = ? ORDER BY identifier", box)
	if err != nil {
		return nil, fmt.Errorf("query box %q: %w", box, err)
	}
	return scanRecords(rows)
}

// CountRecords returns the registry size.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
