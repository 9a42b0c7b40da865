// Package config loads, normalizes, and validates permanentes configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PERMANENTES_DATABASE_URL. The Config type centralizes every knob the CLI,
// importer, and API server need: where the registry lives, how legacy
// numbers are decoded, how CSV exports are read, and how logs are written.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
