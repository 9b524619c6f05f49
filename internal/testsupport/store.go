package testsupport

import (
	"context"
	"testing"

	"rollcall/internal/config"
	"rollcall/internal/registry"
)

// MustOpenStore opens the SQLite registration store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *registry.SQLiteStore {
	t.Helper()

	store, err := registry.OpenSQLite(cfg.Store.SQLitePath, registry.WithBusyTimeout(cfg.BusyTimeout()))
	if err != nil {
		t.Fatalf("registry.OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// AddRegistration inserts a registration for tests using the provided store.
func AddRegistration(t testing.TB, store registry.Store, reg registry.Registration) *registry.Registration {
	t.Helper()

	created, err := store.AddRegistration(context.Background(), reg)
	if err != nil {
		t.Fatalf("store.AddRegistration: %v", err)
	}
	return created
}
