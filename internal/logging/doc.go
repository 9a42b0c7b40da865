// Package logging assembles structured slog loggers and formatting helpers used
// across permanentes.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so batch, listing, and request
// code can tag log lines with batch IDs, listing IDs, and correlation IDs. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
