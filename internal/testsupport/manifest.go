package testsupport

import (
	"path/filepath"
	"testing"

	"flipscan/internal/manifest"
)

// MustOpenManifest opens a manifest under dir and registers cleanup.
func MustOpenManifest(t testing.TB, dir string) *manifest.Store {
	t.Helper()

	store, err := manifest.Open(filepath.Join(dir, "manifest.db"))
	if err != nil {
		t.Fatalf("manifest.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
