package testsupport

import (
	"testing"

	"gptkit/internal/config"
	"gptkit/internal/usage"
)

// MustOpenUsage opens the usage ledger configured in cfg and registers cleanup.
func MustOpenUsage(t testing.TB, cfg *config.Config) *usage.Store {
	t.Helper()

	store, err := usage.Open(cfg.Usage.Path)
	if err != nil {
		t.Fatalf("usage.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
