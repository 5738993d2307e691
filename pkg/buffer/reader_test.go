package buffer

import (
	"errors"
	"math"
	"math/bits"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_FixedWidth(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09})

	v8, err := r.Uint8(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), v8)

	v16, err := r.Uint16(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0302), v16)

	v32, err := r.Uint32(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x05040302), v32)

	v64, err := r.Uint64(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0908070605040302), v64)

	v24, err := r.Uint(0, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x030201), v24)
}

func TestReader_OutOfBounds(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03})

	tests := []struct {
		name string
		read func() error
	}{
		{"uint8 past end", func() error { _, err := r.Uint8(3); return err }},
		{"uint16 straddling end", func() error { _, err := r.Uint16(2); return err }},
		{"uint32", func() error { _, err := r.Uint32(0); return err }},
		{"uint64", func() error { _, err := r.Uint64(0); return err }},
		{"huge offset", func() error { _, err := r.Uint8(math.MaxUint64); return err }},
		{"bytes", func() error { _, err := r.Bytes(1, 3); return err }},
		{"uleb128", func() error { _, _, err := NewReader([]byte{0x80, 0x80}).ULEB128(0); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOutOfBounds))

			var readErr *ReadError
			assert.True(t, errors.As(err, &readErr))
		})
	}
}

func TestReader_SliceKeepsFileOffsets(t *testing.T) {
	r := NewReader(make([]byte, 32))

	sub, err := r.Slice(16, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), sub.Base())
	assert.Equal(t, uint64(8), sub.Len())

	_, err = sub.Uint64(4)
	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, uint64(20), readErr.Offset)

	_, err = r.Slice(30, 4)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestULEB128_RoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 2, 63, 64, 127, 128, 129, 255, 256, 624485,
		1<<14 - 1, 1 << 14, 1<<21 - 1, 1 << 21,
		1<<35 + 17, 1<<56 - 1, 1 << 56, 1<<63 - 1, 1 << 63,
		math.MaxUint32, math.MaxUint64,
	}

	for _, v := range values {
		enc := AppendULEB128(nil, v)

		got, n, err := NewReader(enc).ULEB128(0)
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, ULEB128Len(v), n)

		// A minimal encoding never needs more than ceil(bitlen/7) bytes.
		bitLen := bits.Len64(v)
		limit := (bitLen + 6) / 7
		if limit == 0 {
			limit = 1
		}
		assert.LessOrEqual(t, n, limit, "value %d", v)
	}
}

func TestULEB128_KnownEncodings(t *testing.T) {
	got, n, err := NewReader([]byte{0xe5, 0x8e, 0x26, 0xff}).ULEB128(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(624485), got)
	assert.Equal(t, 3, n)

	// Padded, non-minimal encodings are legal.
	got, n, err = NewReader([]byte{0x80, 0x80, 0x00}).ULEB128(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)
	assert.Equal(t, 3, n)
}

func TestULEB128_Overflow(t *testing.T) {
	// 2^64 needs a 65th bit.
	enc := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x02}
	_, _, err := NewReader(enc).ULEB128(0)
	assert.ErrorIs(t, err, ErrLEB128Overflow)

	enc = []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x81, 0x01}
	_, _, err = NewReader(enc).ULEB128(0)
	assert.ErrorIs(t, err, ErrLEB128Overflow)
}

func TestSLEB128_RoundTrip(t *testing.T) {
	values := []int64{
		0, 1, -1, 2, -2, 63, -64, 64, -65, 127, -128, 128, -129,
		-123456, 123456, math.MaxInt32, math.MinInt32,
		math.MaxInt64, math.MinInt64,
	}

	for _, v := range values {
		enc := AppendSLEB128(nil, v)

		got, n, err := NewReader(enc).SLEB128(0)
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
	}

	got, n, err := NewReader([]byte{0x7f}).SLEB128(0)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), got)
	assert.Equal(t, 1, n)

	got, _, err = NewReader([]byte{0x80, 0x7f}).SLEB128(0)
	require.NoError(t, err)
	assert.Equal(t, int64(-128), got)
}

func TestCString(t *testing.T) {
	r := NewReader([]byte("abc\x00\x00tail"))

	s, n, err := r.CString(0)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
	assert.Equal(t, 4, n)

	s, n, err = r.CString(4)
	require.NoError(t, err)
	assert.Equal(t, "", s)
	assert.Equal(t, 1, n)

	_, _, err = r.CString(5)
	assert.ErrorIs(t, err, ErrUnterminatedString)
}

func TestCursor_StickyError(t *testing.T) {
	c := NewCursor(NewReader([]byte{0x01, 0x02, 0x00, 0x85, 0x01}), 0)

	assert.Equal(t, uint16(0x0201), c.U16())
	assert.Equal(t, uint8(0), c.U8())
	assert.Equal(t, uint64(0x85), c.ULEB128())
	assert.Equal(t, uint64(5), c.Offset())
	require.NoError(t, c.Err())

	assert.Equal(t, uint32(0), c.U32())
	require.ErrorIs(t, c.Err(), ErrOutOfBounds)

	// Later reads keep returning zero values without moving.
	assert.Equal(t, uint64(0), c.ULEB128())
	assert.Equal(t, "", c.CString())
	assert.Equal(t, uint64(5), c.Offset())
}

func TestOpen_MapsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x7f, 'E', 'L', 'F'}, 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	v, err := m.Reader().Uint32(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x464c457f), v)
	assert.Equal(t, path, m.Path())

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestOpen_EmptyAndMissingFiles(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	m, err := Open(empty)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.Reader().Len())
	require.NoError(t, m.Close())

	_, err = Open(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
