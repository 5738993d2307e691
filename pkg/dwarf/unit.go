package dwarf

import (
	"fmt"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

// UnitType is the DWARF 5 unit type (DW_UT_*). Earlier versions only have
// compile units in .debug_info.
type UnitType uint8

const (
	UnitTypeCompile      UnitType = 0x01
	UnitTypeType         UnitType = 0x02
	UnitTypePartial      UnitType = 0x03
	UnitTypeSkeleton     UnitType = 0x04
	UnitTypeSplitCompile UnitType = 0x05
	UnitTypeSplitType    UnitType = 0x06
)

// UnitHeader is the header of one unit in .debug_info.
type UnitHeader struct {
	// Offset is the section offset of the initial length field.
	Offset       uint64
	Format       Format
	Length       uint64
	Version      uint16
	Type         UnitType
	AbbrevOffset uint64
	AddrSize     uint8

	// DWARF 5 type and split units only.
	Signature  uint64
	TypeOffset uint64
}

// HeaderSize is the byte size of the header including the length field:
// 11 or 23 bytes for the DWARF 2-4 layout.
func (u *UnitHeader) HeaderSize() uint64 {
	off := uint64(u.Format.OffsetSize())
	size := u.Format.LengthFieldSize() + 2
	if u.Version < 5 {
		return size + off + 1
	}
	size += 1 + 1 + off
	switch u.Type {
	case UnitTypeType, UnitTypeSplitType:
		size += 8 + off
	case UnitTypeSkeleton, UnitTypeSplitCompile:
		size += 8
	}
	return size
}

// EntriesOffset is the section offset of the first entry.
func (u *UnitHeader) EntriesOffset() uint64 {
	return u.Offset + u.HeaderSize()
}

// Next is the section offset of the following unit.
func (u *UnitHeader) Next() uint64 {
	return u.Offset + u.Format.LengthFieldSize() + u.Length
}

func (u *UnitHeader) String() string {
	return fmt.Sprintf("unit@0x%x v%d %s abbrev=0x%x addr_size=%d", u.Offset, u.Version, u.Format, u.AbbrevOffset, u.AddrSize)
}

// ReadUnitHeader decodes the unit header at off in r.
func ReadUnitHeader(r *buffer.Reader, off uint64) (*UnitHeader, error) {
	wrap := func(err error) error {
		return &DecodeError{Section: ".debug_info", Offset: off, Err: err}
	}

	format, length, err := DetectFormat(r, off)
	if err != nil {
		return nil, wrap(err)
	}
	u := &UnitHeader{Offset: off, Format: format, Length: length, Type: UnitTypeCompile}
	if end := u.Next(); end < off || end > r.Len() {
		return nil, wrap(fmt.Errorf("%w: length 0x%x", ErrUnitLength, length))
	}

	c := buffer.NewCursor(r, off+format.LengthFieldSize())
	u.Version = c.U16()
	if err := c.Err(); err != nil {
		return nil, wrap(err)
	}
	switch {
	case u.Version >= 2 && u.Version <= 4:
		u.AbbrevOffset = c.Uint(format.OffsetSize())
		u.AddrSize = c.U8()
	case u.Version == 5:
		u.Type = UnitType(c.U8())
		u.AddrSize = c.U8()
		u.AbbrevOffset = c.Uint(format.OffsetSize())
		switch u.Type {
		case UnitTypeType, UnitTypeSplitType:
			u.Signature = c.U64()
			u.TypeOffset = c.Uint(format.OffsetSize())
		case UnitTypeSkeleton, UnitTypeSplitCompile:
			u.Signature = c.U64()
		}
	default:
		return nil, wrap(fmt.Errorf("%w: %d", ErrUnsupportedVersion, u.Version))
	}
	if err := c.Err(); err != nil {
		return nil, wrap(err)
	}

	switch u.AddrSize {
	case 1, 2, 4, 8:
	default:
		return nil, wrap(fmt.Errorf("%w: %d", ErrInvalidAddrSize, u.AddrSize))
	}
	if u.EntriesOffset() > u.Next() {
		return nil, wrap(fmt.Errorf("%w: header does not fit in unit", ErrUnitLength))
	}
	return u, nil
}
