// Package backend opens the registry implementation selected by
// configuration: the embedded SQLite store or a Postgres pool.
package backend

import (
	"context"
	"errors"
	"fmt"

	"permanentes/internal/config"
	"permanentes/internal/registry"
	"permanentes/internal/registry/pgstore"
)

// ErrUnknownDriver is returned for registry drivers other than sqlite and postgres.
var ErrUnknownDriver = errors.New("unknown registry driver")

// Open returns the configured registry. The caller closes it.
func Open(ctx context.Context, cfg *config.Config) (registry.Backend, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	switch cfg.Registry.Driver {
	case "", "sqlite":
		store, err := registry.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite registry: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := pgstore.Open(ctx, cfg.Registry.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres registry: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Registry.Driver)
	}
}

// Describe names the registry location for status output without leaking
// Postgres credentials.
func Describe(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	if cfg.Registry.Driver == "postgres" {
		return "postgres"
	}
	return cfg.RegistryPath()
}
