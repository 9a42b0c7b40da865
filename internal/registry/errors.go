package registry

import "errors"

var (
	// ErrNotFound is returned when a listing, item, or record id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateItem is returned when an identifier is already in the listing.
	ErrDuplicateItem = errors.New("identifier already in listing")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
