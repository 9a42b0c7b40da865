// Package preflight provides readiness checks for the directories, registry,
// and API daemon that permanentes depends on.
//
// The CLI "permanentes doctor" command runs RunAll and renders one status
// line per Result. Individual checks are exported so callers can run a
// subset.
package preflight
