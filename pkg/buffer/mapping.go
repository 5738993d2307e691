package buffer

import "sync"

// Mapping is a file image held in memory for the lifetime of an inspection.
type Mapping struct {
	path   string
	reader *Reader
	unmap  func() error
	once   sync.Once
}

// NewMapping wraps an in-memory image. Close is a no-op for such mappings.
func NewMapping(path string, data []byte) *Mapping {
	return &Mapping{path: path, reader: NewReader(data)}
}

// Path returns the path the mapping was opened from.
func (m *Mapping) Path() string {
	return m.path
}

// Reader returns a reader over the whole image.
func (m *Mapping) Reader() *Reader {
	return m.reader
}

// Close releases the mapping. Readers obtained from it must not be used afterwards.
func (m *Mapping) Close() error {
	var err error
	m.once.Do(func() {
		if m.unmap != nil {
			err = m.unmap()
		}
	})
	return err
}
