//go:build !linux && !darwin

package buffer

import (
	"fmt"
	"os"
)

// Open reads the file at path into memory. Platforms without mmap support get a
// private copy instead of a mapping.
func Open(path string) (*Mapping, error) {
	// #nosec G304 -- path is the binary the user asked to inspect.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &Mapping{path: path, reader: NewReader(data)}, nil
}
