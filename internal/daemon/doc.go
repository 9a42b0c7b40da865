// Package daemon owns the lifecycle of the long-running permanentes API
// process.
//
// It holds a flock-based lock under the data directory so only one instance
// serves a registry at a time, binds the configured address, and shuts the
// HTTP server down gracefully when its context ends. Request handling lives
// in the api package; the daemon only starts, stops, and reports status.
package daemon
