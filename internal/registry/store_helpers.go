package registry

import (
	"database/sql"
	"errors"
	"time"
)

const recordColumns = "id, identifier, status, class, subject, current_body, locator, status_detail, box, found_by, found_at, found_listing_id, updated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanRecord(scanner rowScanner) (*Record, error) {
	var (
		rec            Record
		status         sql.NullString
		class          sql.NullString
		subject        sql.NullString
		currentBody    sql.NullString
		locator        sql.NullString
		statusDetail   sql.NullString
		box            sql.NullString
		foundBy        sql.NullString
		foundAtRaw     sql.NullString
		foundListingID sql.NullInt64
		updatedRaw     sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Identifier,
		&status,
		&class,
		&subject,
		&currentBody,
		&locator,
		&statusDetail,
		&box,
		&foundBy,
		&foundAtRaw,
		&foundListingID,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec.Status = status.String
	rec.StatusNull = !status.Valid
	rec.Class = class.String
	rec.Subject = subject.String
	rec.CurrentBody = currentBody.String
	rec.Locator = locator.String
	rec.StatusDetail = statusDetail.String
	rec.Box = box.String
	rec.FoundBy = foundBy.String
	if foundAtRaw.Valid {
		if at, err := parseTimeString(foundAtRaw.String); err == nil {
			rec.FoundAt = &at
		}
	}
	if foundListingID.Valid {
		id := foundListingID.Int64
		rec.FoundListingID = &id
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanListing(scanner rowScanner) (*Listing, error) {
	var (
		listing    Listing
		createdRaw string
	)
	if err := scanner.Scan(&listing.ID, &listing.Title, &listing.Creator, &createdRaw, &listing.ItemCount); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		listing.CreatedAt = created
	}
	return &listing, nil
}

func scanItem(scanner rowScanner) (*ListingItem, error) {
	var (
		item      ListingItem
		permanent int
		addedRaw  string
	)
	if err := scanner.Scan(&item.ID, &item.ListingID, &item.Entered, &permanent, &addedRaw); err != nil {
		return nil, err
	}
	item.Permanent = permanent != 0
	if added, err := parseTimeString(addedRaw); err == nil {
		item.AddedAt = added
	}
	return &item, nil
}

// nullableString stores blank descriptive fields as NULL.
func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// storedTimeLayout is fixed width so that text ordering in SQL matches time order.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(storedTimeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// prefixUpperBound returns the smallest string greater than every string
// starting with prefix, for digit prefixes. ':' follows '9' in ASCII.
func prefixUpperBound(prefix string) string {
	return prefix + ":"
}
