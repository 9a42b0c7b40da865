package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"permanentes/internal/registry"
)

const recordColumns = "id, identifier, status, class, subject, current_body, locator, status_detail, box, found_by, found_at, found_listing_id, updated_at"

func scanRecord(row pgx.CollectableRow) (registry.Record, error) {
	var (
		rec                                                           registry.Record
		status, class, subject, currentBody, locator, detail, box, by *string
	)
	if err := row.Scan(
		&rec.ID, &rec.Identifier, &status, &class, &subject, &currentBody,
		&locator, &detail, &box, &by, &rec.FoundAt, &rec.FoundListingID, &rec.UpdatedAt,
	); err != nil {
		return registry.Record{}, err
	}
	rec.StatusNull = status == nil
	rec.Status = deref(status)
	rec.Class = deref(class)
	rec.Subject = deref(subject)
	rec.CurrentBody = deref(currentBody)
	rec.Locator = deref(locator)
	rec.StatusDetail = deref(detail)
	rec.Box = deref(box)
	rec.FoundBy = deref(by)
	return rec, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]registry.Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanRecord)
}

// FindByIdentifier returns (nil, nil) when no record has exactly id.
func (s *Store) FindByIdentifier(ctx context.Context, id string) (*registry.Record, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+recordColumns+" FROM records WHERE identifier = $1", id)
	if err != nil {
		return nil, fmt.Errorf("find record %q: %w", id, err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record %q: %w", id, err)
	}
	return &rec, nil
}

// FindByPrefixAndSubstring narrows with the text_pattern_ops index on the
// prefix and filters the substring in memory, keeping id order.
func (s *Store) FindByPrefixAndSubstring(ctx context.Context, prefix, substring string) ([]registry.Record, error) {
	candidates, err := s.queryRecords(ctx,
		"SELECT "+recordColumns+` FROM records WHERE identifier LIKE $1 ESCAPE '\' ORDER BY id`,
		likePrefix(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("query prefix %q: %w", prefix, err)
	}
	matched := candidates[:0]
	for _, rec := range candidates {
		if strings.Contains(rec.Identifier, substring) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// UpsertRecords sends one batch per call inside a transaction. Claim fields
// are never touched.
func (s *Store) UpsertRecords(ctx context.Context, records []registry.Record) (registry.UpsertResult, error) {
	var result registry.UpsertResult
	if len(records) == 0 {
		return result, nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec.Identifier == "" {
			continue
		}
		var status *string
		if !rec.StatusNull {
			value := rec.Status
			status = &value
		}
		batch.Queue(`INSERT INTO records (identifier, status, class, subject, current_body, locator, status_detail, box, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (identifier) DO UPDATE SET
				status = EXCLUDED.status, class = EXCLUDED.class, subject = EXCLUDED.subject,
				current_body = EXCLUDED.current_body, locator = EXCLUDED.locator,
				status_detail = EXCLUDED.status_detail, box = EXCLUDED.box, updated_at = now()
			RETURNING (xmax = 0)`,
			rec.Identifier, status, nullable(rec.Class), nullable(rec.Subject), nullable(rec.CurrentBody),
			nullable(rec.Locator), nullable(rec.StatusDetail), nullable(rec.Box),
		)
	}
	if batch.Len() == 0 {
		return result, nil
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			var inserted bool
			if err := results.QueryRow().Scan(&inserted); err != nil {
				_ = results.Close()
				return err
			}
			if inserted {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return results.Close()
	})
	if err != nil {
		return registry.UpsertResult{}, fmt.Errorf("upsert records: %w", err)
	}
	return result, nil
}

// MarkFound records who separated the record, when, and from which listing.
func (s *Store) MarkFound(ctx context.Context, recordID int64, claimant string, at time.Time, listingID int64) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE records SET found_by = $1, found_at = $2, found_listing_id = $3 WHERE id = $4",
		claimant, at.UTC(), listingID, recordID,
	)
	if err != nil {
		return fmt.Errorf("mark record %d found: %w", recordID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark record %d found: %w", recordID, registry.ErrNotFound)
	}
	return nil
}

// FoundInListing returns the records claimed through the given listing.
func (s *Store) FoundInListing(ctx context.Context, listingID int64) ([]registry.Record, error) {
	recs, err := s.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM records WHERE found_listing_id = $1 ORDER BY found_at, id", listingID)
	if err != nil {
		return nil, fmt.Errorf("query found records: %w", err)
	}
	return recs, nil
}

// ListBoxes returns the distinct non-empty box labels, sorted.
func (s *Store) ListBoxes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT box FROM records WHERE box IS NOT NULL AND box <> '' ORDER BY box")
	if err != nil {
		return nil, fmt.Errorf("query boxes: %w", err)
	}
	boxes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan boxes: %w", err)
	}
	return boxes, nil
}

// RecordsInBox returns the records stored in box, ordered by identifier.
func (s *Store) RecordsInBox(ctx context.Context, box string) ([]registry.Record, error) {
	if box == "" {
		return nil, nil
	}
	recs, err := s.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM records WHERE box = $1 ORDER BY identifier", box)
	if err != nil {
		return nil, fmt.Errorf("query box %q: %w", box, err)
	}
	return recs, nil
}

// CountRecords returns the registry size.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(1) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
