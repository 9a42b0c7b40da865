// Command permanentes is the operator CLI for the permanent-process registry.
//
// It imports CSV exports, checks single numbers, reconciles pasted batches,
// audits boxes, manages listings, and runs the HTTP API with `serve`.
// Commands open the configured registry directly; only `serve` starts the
// long-running daemon.
package main
