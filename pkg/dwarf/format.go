package dwarf

import (
	"errors"
	"fmt"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

var (
	// ErrMissingSection is returned when a required debug section is absent.
	ErrMissingSection = errors.New("missing debug section")

	// ErrUnknownTag is returned for an abbreviation whose tag is not in the tag table.
	ErrUnknownTag = errors.New("unknown DWARF tag")

	// ErrUnknownForm is returned for an attribute form whose width cannot be determined.
	ErrUnknownForm = errors.New("unknown DWARF form")

	// ErrUnknownAbbrev is returned for an entry that references an undeclared abbreviation code.
	ErrUnknownAbbrev = errors.New("unknown abbreviation code")

	// ErrUnsupportedVersion is returned for unit versions outside 2..5.
	ErrUnsupportedVersion = errors.New("unsupported DWARF version")

	// ErrInvalidAddrSize is returned for unit address sizes other than 1, 2, 4 or 8.
	ErrInvalidAddrSize = errors.New("invalid address size")

	// ErrUnitLength is returned when a unit length runs past the end of its section.
	ErrUnitLength = errors.New("unit length exceeds section")

	// ErrUnsupportedForm is returned when a value cannot be resolved with the
	// sections at hand, such as strx forms without .debug_str_offsets.
	ErrUnsupportedForm = errors.New("unsupported form for resolution")
)

// DecodeError locates a decoding failure inside a debug section.
type DecodeError struct {
	Section string
	Offset  uint64
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at offset 0x%x: %v", e.Section, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Format is the DWARF offset format of one unit.
type Format uint8

const (
	Format32 Format = iota + 1
	Format64
)

// escape64 in the initial length field selects the 64-bit format.
const escape64 = 0xffffffff

func (f Format) String() string {
	switch f {
	case Format32:
		return "DWARF32"
	case Format64:
		return "DWARF64"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// OffsetSize is the width of section offsets (strp, sec_offset, ref_addr).
func (f Format) OffsetSize() int {
	if f == Format64 {
		return 8
	}
	return 4
}

// LengthFieldSize is the width of the initial length field, escape included.
func (f Format) LengthFieldSize() uint64 {
	if f == Format64 {
		return 12
	}
	return 4
}

// DetectFormat reads the initial length field at off. It returns the format
// and the unit length that follows the length field.
//
// Only 0xffffffff selects the 64-bit format; every other value, including the
// reserved range just below it, is a 32-bit length.
func DetectFormat(r *buffer.Reader, off uint64) (Format, uint64, error) {
	l32, err := r.Uint32(off)
	if err != nil {
		return 0, 0, err
	}
	if l32 != escape64 {
		return Format32, uint64(l32), nil
	}
	l64, err := r.Uint64(off + 4)
	if err != nil {
		return 0, 0, err
	}
	return Format64, l64, nil
}
