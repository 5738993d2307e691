// Package buffer provides offset-addressed, read-only access to the bytes of a
// binary image.
//
// Every read is a pure function of the backing slice and an absolute offset, so a
// Reader can be shared between goroutines without synchronization. Multi-byte
// integers are little-endian; big-endian images are rejected by the ELF layer
// before any Reader is handed to the DWARF decoders.
package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned when a read touches bytes past the end of the buffer.
	ErrOutOfBounds = errors.New("read out of bounds")

	// ErrLEB128Overflow is returned when a LEB128 value does not fit in 64 bits.
	ErrLEB128Overflow = errors.New("LEB128 value overflows 64 bits")

	// ErrUnterminatedString is returned when no NUL byte follows a string start.
	ErrUnterminatedString = errors.New("unterminated string")

	// ErrInvalidWidth is returned for fixed-width reads other than 1, 2, 4 or 8 bytes.
	ErrInvalidWidth = errors.New("invalid integer width")
)

// ReadError describes a failed read with enough context to locate it in the file.
type ReadError struct {
	// Offset is the absolute file offset of the failed read.
	Offset uint64
	// Width is the number of bytes the read needed.
	Width uint64
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read of %d bytes at file offset 0x%x: %v", e.Width, e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Reader reads little-endian values from an immutable byte slice.
// Offsets passed to its methods are relative to the start of the slice; Base
// reports where that slice starts in the underlying file.
type Reader struct {
	data []byte
	base uint64
}

// NewReader returns a Reader over data, which must not be modified afterwards.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of readable bytes.
func (r *Reader) Len() uint64 {
	return uint64(len(r.data))
}

// Base returns the file offset of the first byte of the reader.
func (r *Reader) Base() uint64 {
	return r.base
}

// Slice returns a bounded sub-reader of n bytes starting at off.
func (r *Reader) Slice(off, n uint64) (*Reader, error) {
	if err := r.check(off, n); err != nil {
		return nil, err
	}
	return &Reader{data: r.data[off : off+n], base: r.base + off}, nil
}

func (r *Reader) check(off, n uint64) error {
	size := uint64(len(r.data))
	if off > size || n > size-off {
		return &ReadError{Offset: r.base + off, Width: n, Err: ErrOutOfBounds}
	}
	return nil
}

// Bytes returns the n bytes at off. The result aliases the backing buffer.
func (r *Reader) Bytes(off, n uint64) ([]byte, error) {
	if err := r.check(off, n); err != nil {
		return nil, err
	}
	return r.data[off : off+n : off+n], nil
}

// Uint8 reads one byte at off.
func (r *Reader) Uint8(off uint64) (uint8, error) {
	if err := r.check(off, 1); err != nil {
		return 0, err
	}
	return r.data[off], nil
}

// Uint16 reads a little-endian uint16 at off.
func (r *Reader) Uint16(off uint64) (uint16, error) {
	if err := r.check(off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.data[off:]), nil
}

// Uint32 reads a little-endian uint32 at off.
func (r *Reader) Uint32(off uint64) (uint32, error) {
	if err := r.check(off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.data[off:]), nil
}

// Uint64 reads a little-endian uint64 at off.
func (r *Reader) Uint64(off uint64) (uint64, error) {
	if err := r.check(off, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.data[off:]), nil
}

// Uint reads an unsigned little-endian integer of the given width (1..8 bytes).
// Widths that are not a power of two, such as the 3-byte DW_FORM_strx3, are
// assembled byte by byte.
func (r *Reader) Uint(off uint64, width int) (uint64, error) {
	switch width {
	case 1:
		v, err := r.Uint8(off)
		return uint64(v), err
	case 2:
		v, err := r.Uint16(off)
		return uint64(v), err
	case 4:
		v, err := r.Uint32(off)
		return uint64(v), err
	case 8:
		return r.Uint64(off)
	}
	if width <= 0 || width > 8 {
		return 0, &ReadError{Offset: r.base + off, Width: uint64(max(width, 0)), Err: ErrInvalidWidth}
	}
	b, err := r.Bytes(off, uint64(width))
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// ULEB128 decodes an unsigned LEB128 value at off and returns it together with
// the number of bytes consumed. Payload bits above bit 63 must be zero; anything
// else is reported as ErrLEB128Overflow rather than truncated.
func (r *Reader) ULEB128(off uint64) (uint64, int, error) {
	var (
		result uint64
		shift  uint
	)
	for n := 1; ; n++ {
		b, err := r.Uint8(off + uint64(n-1))
		if err != nil {
			return 0, 0, err
		}
		payload := uint64(b & 0x7f)
		switch {
		case shift < 63:
			result |= payload << shift
		case shift == 63:
			if payload > 1 {
				return 0, 0, &ReadError{Offset: r.base + off, Width: uint64(n), Err: ErrLEB128Overflow}
			}
			result |= payload << shift
		default:
			if payload != 0 {
				return 0, 0, &ReadError{Offset: r.base + off, Width: uint64(n), Err: ErrLEB128Overflow}
			}
		}
		if b&0x80 == 0 {
			return result, n, nil
		}
		shift += 7
	}
}

// SLEB128 decodes a signed LEB128 value at off and returns it together with the
// number of bytes consumed.
func (r *Reader) SLEB128(off uint64) (int64, int, error) {
	var (
		result int64
		shift  uint
	)
	for n := 1; ; n++ {
		b, err := r.Uint8(off + uint64(n-1))
		if err != nil {
			return 0, 0, err
		}
		payload := int64(b & 0x7f)
		if shift < 63 {
			result |= payload << shift
		} else if payload != 0 && payload != 0x7f {
			return 0, 0, &ReadError{Offset: r.base + off, Width: uint64(n), Err: ErrLEB128Overflow}
		} else if shift == 63 {
			result |= payload << shift
		}
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, n, nil
		}
	}
}

// CString reads a NUL-terminated string at off. The returned width includes the
// terminator.
func (r *Reader) CString(off uint64) (string, int, error) {
	if err := r.check(off, 0); err != nil {
		return "", 0, err
	}
	for i := off; i < uint64(len(r.data)); i++ {
		if r.data[i] == 0 {
			return string(r.data[off:i]), int(i-off) + 1, nil
		}
	}
	return "", 0, &ReadError{Offset: r.base + off, Width: uint64(len(r.data)) - off, Err: ErrUnterminatedString}
}
