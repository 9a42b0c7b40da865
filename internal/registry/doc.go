// Package registry persists the permanent-process registry and the listing
// workflow state in SQLite.
//
// The Store implements the lookups the resolver needs (exact identifier and
// the two-stage legacy candidate query), the bulk upsert used by the CSV
// importer, the claim write-back performed when a listing entry hits a
// permanent record, and the listing/item bookkeeping itself. The Backend
// interface lets the Postgres implementation in pgstore stand in for it.
//
// Writes retry briefly on SQLITE_BUSY; readers rely on WAL mode and the
// database/sql pool for concurrency.
package registry
