// Package testutil builds synthetic ELF images and DWARF sections for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteImage writes data to a file in a per-test directory and returns its
// path. The directory is removed when the test completes.
func WriteImage(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "image.elf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
	return path
}
