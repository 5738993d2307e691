//go:build linux || darwin

package buffer

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Open maps the file at path read-only into memory.
func Open(path string) (*Mapping, error) {
	// #nosec G304 -- path is the binary the user asked to inspect.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return &Mapping{path: path, reader: NewReader(nil)}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("file %s is too large to map (%d bytes)", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap %s: %w", path, err)
	}

	return &Mapping{
		path:   path,
		reader: NewReader(data),
		unmap:  func() error { return unix.Munmap(data) },
	}, nil
}
