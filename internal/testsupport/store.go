package testsupport

import (
	"context"
	"testing"

	"permanentes/internal/config"
	"permanentes/internal/registry"
)

// MustOpenStore opens a registry.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedRecords upserts records in order, so IDs follow slice order on an
// empty store.
func SeedRecords(t testing.TB, store registry.Records, records ...registry.Record) {
	t.Helper()

	if _, err := store.UpsertRecords(context.Background(), records); err != nil {
		t.Fatalf("store.UpsertRecords: %v", err)
	}
}

// MustFind returns the record stored under identifier or fails the test.
func MustFind(t testing.TB, store registry.Records, identifier string) registry.Record {
	t.Helper()

	rec, err := store.FindByIdentifier(context.Background(), identifier)
	if err != nil {
		t.Fatalf("store.FindByIdentifier(%q): %v", identifier, err)
	}
	if rec == nil {
		t.Fatalf("record %q not found", identifier)
	}
	return *rec
}
