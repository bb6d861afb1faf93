package testsupport

import (
	"testing"

	"stillpoint/internal/clock"
	"stillpoint/internal/config"
	"stillpoint/internal/kvstore"
)

// MustOpenStore opens a kvstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, clk clock.Clock) *kvstore.Store {
	t.Helper()

	store, err := kvstore.Open(cfg, clk)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
