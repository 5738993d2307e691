package dwarf

import "fmt"

// ValueHeader is the part every attribute value shares: what it is, how it
// was encoded and where.
type ValueHeader struct {
	Attr Attr
	Form Form
	// Offset is the .debug_info offset of the encoded value.
	Offset uint64
	// Width is the number of bytes the value occupies in the entry.
	Width uint64
}

// Header returns the shared value header.
func (h ValueHeader) Header() ValueHeader { return h }

// Value is a decoded attribute value. The concrete types are FlagValue,
// FlagPresentValue, DataValue, LEBValue, OffsetValue, BlockValue and
// StringValue; no other package can add to the set.
type Value interface {
	Header() ValueHeader
	fmt.Stringer
	isValue()
}

// FlagValue is a DW_FORM_flag byte.
type FlagValue struct {
	ValueHeader
	Flag bool
}

// FlagPresentValue is DW_FORM_flag_present: true and zero bytes wide.
type FlagPresentValue struct {
	ValueHeader
}

// DataValue is a fixed-width integer: data1..data8, ref1..ref8, strx1..strx4,
// addrx1..addrx4, ref_sig8 and ref_sup4/8.
type DataValue struct {
	ValueHeader
	Data uint64
}

// LEBValue is a LEB128-encoded integer: udata, sdata, ref_udata, strx, addrx,
// loclistx, rnglistx and implicit_const.
type LEBValue struct {
	ValueHeader
	Signed   bool
	Unsigned uint64
	Int      int64
}

// OffsetValue is an offset or address whose width comes from the unit:
// strp, line_strp, strp_sup, sec_offset and ref_addr use the DWARF format,
// addr uses the unit address size.
type OffsetValue struct {
	ValueHeader
	Off uint64
}

// BlockValue is a raw byte span: exprloc, block, block1/2/4 and data16.
// Data aliases the mapped image.
type BlockValue struct {
	ValueHeader
	Data []byte
}

// StringValue is an inline DW_FORM_string.
type StringValue struct {
	ValueHeader
	Str string
}

func (FlagValue) isValue()        {}
func (FlagPresentValue) isValue() {}
func (DataValue) isValue()        {}
func (LEBValue) isValue()         {}
func (OffsetValue) isValue()      {}
func (BlockValue) isValue()       {}
func (StringValue) isValue()      {}

func (v FlagValue) String() string        { return fmt.Sprintf("%t", v.Flag) }
func (v FlagPresentValue) String() string { return "true" }
func (v DataValue) String() string        { return fmt.Sprintf("0x%x", v.Data) }
func (v OffsetValue) String() string      { return fmt.Sprintf("0x%x", v.Off) }
func (v StringValue) String() string      { return fmt.Sprintf("%q", v.Str) }

func (v LEBValue) String() string {
	if v.Signed {
		return fmt.Sprintf("%d", v.Int)
	}
	return fmt.Sprintf("%d", v.Unsigned)
}

func (v BlockValue) String() string {
	return fmt.Sprintf("block[%d] % x", len(v.Data), v.Data)
}

// AsUint interprets v as an unsigned integer. Strings and blocks have none.
func AsUint(v Value) (uint64, bool) {
	switch v := v.(type) {
	case DataValue:
		return v.Data, true
	case LEBValue:
		if v.Signed {
			return uint64(v.Int), true
		}
		return v.Unsigned, true
	case OffsetValue:
		return v.Off, true
	case FlagValue:
		if v.Flag {
			return 1, true
		}
		return 0, true
	case FlagPresentValue:
		return 1, true
	}
	return 0, false
}

// AsInt interprets v as a signed integer. Fixed-width data is sign-extended
// from its encoded width.
func AsInt(v Value) (int64, bool) {
	switch v := v.(type) {
	case LEBValue:
		if v.Signed {
			return v.Int, true
		}
		return int64(v.Unsigned), true
	case DataValue:
		if v.Width == 0 || v.Width >= 8 {
			return int64(v.Data), true
		}
		shift := 64 - 8*v.Width
		return int64(v.Data<<shift) >> shift, true
	}
	u, ok := AsUint(v)
	return int64(u), ok
}
