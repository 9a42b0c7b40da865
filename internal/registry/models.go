package registry

import (
	"strings"
	"time"
)

// Record is one entry of the permanent registry, keyed by its identifier.
type Record struct {
	ID         int64  `json:"id"`
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
	// StatusNull is set when the status column holds SQL NULL rather than text.
	StatusNull   bool   `json:"-"`
	Class        string `json:"class,omitempty"`
	Subject      string `json:"subject,omitempty"`
	CurrentBody  string `json:"current_body,omitempty"`
	Locator      string `json:"locator,omitempty"`
	StatusDetail string `json:"status_detail,omitempty"`
	Box          string `json:"box,omitempty"`

	FoundBy        string     `json:"found_by,omitempty"`
	FoundAt        *time.Time `json:"found_at,omitempty"`
	FoundListingID *int64     `json:"found_listing_id,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Claimed reports whether the record was already separated by some listing.
func (r Record) Claimed() bool {
	return r.FoundAt != nil
}

// Listing is a named batch of identifiers entered by one operator.
type Listing struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Creator   string    `json:"creator"`
	CreatedAt time.Time `json:"created_at"`
	ItemCount int       `json:"item_count"`
}

// ListingItem is one identifier entered into a listing.
type ListingItem struct {
	ID        int64     `json:"id"`
	ListingID int64     `json:"listing_id"`
	Entered   string    `json:"entered"`
	Permanent bool      `json:"permanent"`
	AddedAt   time.Time `json:"added_at"`
}

// UpsertResult counts what an UpsertRecords call changed.
type UpsertResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// StatusText renders the status for operators: the trimmed text, "Campo Nulo"
// when the column is NULL or empty, or "Vazio" when it holds only whitespace.
func (r Record) StatusText() string {
	if r.StatusNull || r.Status == "" {
		return "Campo Nulo"
	}
	if trimmed := strings.TrimSpace(r.Status); trimmed != "" {
		return trimmed
	}
	return "Vazio"
}
