package testsupport

import (
	"context"
	"testing"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustUpsert stores entry and returns the title id.
func MustUpsert(t testing.TB, store *catalog.Store, entry catalog.Entry) int64 {
	t.Helper()

	id, err := store.UpsertTitleAndStream(context.Background(), entry)
	if err != nil {
		t.Fatalf("store.UpsertTitleAndStream: %v", err)
	}
	return id
}
