// Package importer loads registry records from the spreadsheet exports the
// archive receives, typically semicolon-separated latin-1 files saved by
// Excel. Rows are upserted by identifier in batches; a bad row is counted and
// skipped without aborting the import.
package importer
