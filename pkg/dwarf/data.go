// Package dwarf decodes the .debug_abbrev and .debug_info sections of a DWARF
// 2 to 5 producer into an immutable tree of entries with typed attribute values.
//
// Decoding is per unit: a unit whose abbreviations or entries cannot be decoded
// is reported and skipped, and decoding resumes at the next unit header.
// Strings referenced from .debug_str are only read when asked for.
package dwarf

import (
	"errors"
	"fmt"
	"iter"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

// Data holds the debug sections a decoder needs.
type Data struct {
	info   *buffer.Reader
	abbrev *AbbrevSection
	str    *buffer.Reader
}

// New returns a decoder over the given section contents. info and abbrev are
// required; str may be nil when the image has no .debug_str.
func New(info, abbrev, str *buffer.Reader) (*Data, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: .debug_info", ErrMissingSection)
	}
	if abbrev == nil {
		return nil, fmt.Errorf("%w: .debug_abbrev", ErrMissingSection)
	}
	return &Data{info: info, abbrev: NewAbbrevSection(abbrev), str: str}, nil
}

// Abbrevs returns the abbreviation decoder shared by all units.
func (d *Data) Abbrevs() *AbbrevSection {
	return d.abbrev
}

// Units iterates over unit headers in section order. Iteration stops after the
// first header that cannot be read, since the next unit cannot be located.
// Trailing bytes too short to hold a unit length are padding.
func (d *Data) Units() iter.Seq2[*UnitHeader, error] {
	return func(yield func(*UnitHeader, error) bool) {
		for off := uint64(0); d.info.Len()-off >= 4; {
			u, err := ReadUnitHeader(d.info, off)
			if !yield(u, err) || err != nil {
				return
			}
			off = u.Next()
		}
	}
}

// UnitError records a unit that was abandoned during decoding.
type UnitError struct {
	Unit *UnitHeader
	// Offset is the offset of the unit header.
	Offset uint64
	Err    error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit at 0x%x: %v", e.Offset, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// Decode decodes every unit. Units that fail are collected in Tree.Failed and
// the rest of the section is still decoded.
func (d *Data) Decode() *Tree {
	t := &Tree{}
	for u, err := range d.Units() {
		if err != nil {
			var off uint64
			var de *DecodeError
			if errors.As(err, &de) {
				off = de.Offset
			}
			t.Failed = append(t.Failed, &UnitError{Offset: off, Err: err})
			break
		}
		entries, err := d.DecodeUnit(u)
		if err != nil {
			t.Failed = append(t.Failed, &UnitError{Unit: u, Offset: u.Offset, Err: err})
			continue
		}
		t.Units = append(t.Units, u)
		t.Entries = append(t.Entries, entries...)
	}
	return t
}

// DecodeUnit decodes the entries of one unit and returns its top-level
// sibling list, normally a single compile unit entry.
func (d *Data) DecodeUnit(u *UnitHeader) ([]*Entry, error) {
	table, err := d.abbrev.Table(u.AbbrevOffset, 0)
	if err != nil {
		return nil, err
	}
	r, err := d.info.Slice(0, u.Next())
	if err != nil {
		return nil, &DecodeError{Section: ".debug_info", Offset: u.Offset, Err: err}
	}
	dec := &unitDecoder{r: r, unit: u, table: table}
	entries, _, err := dec.siblings(u.EntriesOffset())
	return entries, err
}

// String reads the .debug_str string at off.
func (d *Data) String(off uint64) (string, error) {
	if d.str == nil {
		return "", fmt.Errorf("%w: .debug_str", ErrMissingSection)
	}
	s, _, err := d.str.CString(off)
	if err != nil {
		return "", &DecodeError{Section: ".debug_str", Offset: off, Err: err}
	}
	return s, nil
}

// AttrString resolves a string-valued attribute. It reports false when the
// entry does not carry attr or attr is not a string.
func (d *Data) AttrString(e *Entry, attr Attr) (string, bool, error) {
	switch v := e.Val(attr).(type) {
	case nil:
		return "", false, nil
	case StringValue:
		return v.Str, true, nil
	case OffsetValue:
		if v.Form != FormStrp {
			return "", false, fmt.Errorf("%w: %s", ErrUnsupportedForm, v.Form)
		}
		s, err := d.String(v.Off)
		if err != nil {
			return "", false, err
		}
		return s, true, nil
	default:
		if v.Header().Form.IsString() {
			return "", false, fmt.Errorf("%w: %s", ErrUnsupportedForm, v.Header().Form)
		}
		return "", false, nil
	}
}

// Name returns DW_AT_name, or "" when it is absent or unreadable.
func (d *Data) Name(e *Entry) string {
	s, _, _ := d.AttrString(e, AttrName)
	return s
}

type unitDecoder struct {
	r     *buffer.Reader
	unit  *UnitHeader
	table *AbbrevTable
}

// siblings decodes entries from off until a zero code or the end of the unit.
// Entries whose declaration has children recurse before the next sibling.
func (d *unitDecoder) siblings(off uint64) ([]*Entry, uint64, error) {
	var out []*Entry
	for off < d.r.Len() {
		start := off
		code, n, err := d.r.ULEB128(off)
		if err != nil {
			return out, off, &DecodeError{Section: ".debug_info", Offset: start, Err: err}
		}
		off += uint64(n)
		if code == 0 {
			return out, off, nil
		}

		ab, ok := d.table.Lookup(code)
		if !ok {
			return out, off, &DecodeError{Section: ".debug_info", Offset: start, Err: fmt.Errorf("%w: %d", ErrUnknownAbbrev, code)}
		}

		e := &Entry{Offset: start, Tag: ab.Tag, Code: code, Unit: d.unit}
		if len(ab.Fields) > 0 {
			e.Attrs = make([]Value, 0, len(ab.Fields))
		}
		for _, f := range ab.Fields {
			v, err := d.value(off, f.Attr, f.Form, f.ImplicitConst)
			if err != nil {
				return out, off, err
			}
			e.Attrs = append(e.Attrs, v)
			off += v.Header().Width
		}

		if ab.HasChildren {
			e.Children, off, err = d.siblings(off)
			if err != nil {
				return out, off, err
			}
		}
		out = append(out, e)
	}
	return out, off, nil
}

// value decodes one attribute value at off. The returned width is always the
// number of bytes the form occupies, whatever the value.
func (d *unitDecoder) value(off uint64, attr Attr, form Form, implicit int64) (Value, error) {
	h := ValueHeader{Attr: attr, Form: form, Offset: off}
	fail := func(err error) (Value, error) {
		return nil, &DecodeError{Section: ".debug_info", Offset: off, Err: fmt.Errorf("%s %s: %w", attr, form, err)}
	}

	fixed := func(width int) (Value, error) {
		v, err := d.r.Uint(off, width)
		if err != nil {
			return fail(err)
		}
		h.Width = uint64(width)
		return DataValue{ValueHeader: h, Data: v}, nil
	}
	sized := func(width int) (Value, error) {
		v, err := d.r.Uint(off, width)
		if err != nil {
			return fail(err)
		}
		h.Width = uint64(width)
		return OffsetValue{ValueHeader: h, Off: v}, nil
	}
	block := func(prefix uint64, length uint64) (Value, error) {
		b, err := d.r.Bytes(off+prefix, length)
		if err != nil {
			return fail(err)
		}
		h.Width = prefix + length
		return BlockValue{ValueHeader: h, Data: b}, nil
	}

	switch form {
	case FormFlag:
		b, err := d.r.Uint8(off)
		if err != nil {
			return fail(err)
		}
		h.Width = 1
		return FlagValue{ValueHeader: h, Flag: b != 0}, nil

	case FormFlagPresent:
		return FlagPresentValue{ValueHeader: h}, nil

	case FormData1, FormRef1, FormStrx1, FormAddrx1:
		return fixed(1)
	case FormData2, FormRef2, FormStrx2, FormAddrx2:
		return fixed(2)
	case FormStrx3, FormAddrx3:
		return fixed(3)
	case FormData4, FormRef4, FormStrx4, FormAddrx4, FormRefSup4:
		return fixed(4)
	case FormData8, FormRef8, FormRefSig8, FormRefSup8:
		return fixed(8)

	case FormUdata, FormRefUdata, FormStrx, FormAddrx, FormLoclistx, FormRnglistx:
		v, n, err := d.r.ULEB128(off)
		if err != nil {
			return fail(err)
		}
		h.Width = uint64(n)
		return LEBValue{ValueHeader: h, Unsigned: v}, nil

	case FormSdata:
		v, n, err := d.r.SLEB128(off)
		if err != nil {
			return fail(err)
		}
		h.Width = uint64(n)
		return LEBValue{ValueHeader: h, Signed: true, Int: v}, nil

	case FormImplicitConst:
		return LEBValue{ValueHeader: h, Signed: true, Int: implicit}, nil

	case FormStrp, FormLineStrp, FormStrpSup, FormSecOffset, FormRefAddr:
		// DWARF 2 sized ref_addr by the address size.
		if form == FormRefAddr && d.unit.Version == 2 {
			return sized(int(d.unit.AddrSize))
		}
		return sized(d.unit.Format.OffsetSize())

	case FormAddr:
		return sized(int(d.unit.AddrSize))

	case FormExprloc, FormBlock:
		length, n, err := d.r.ULEB128(off)
		if err != nil {
			return fail(err)
		}
		return block(uint64(n), length)
	case FormBlock1:
		length, err := d.r.Uint8(off)
		if err != nil {
			return fail(err)
		}
		return block(1, uint64(length))
	case FormBlock2:
		length, err := d.r.Uint16(off)
		if err != nil {
			return fail(err)
		}
		return block(2, uint64(length))
	case FormBlock4:
		length, err := d.r.Uint32(off)
		if err != nil {
			return fail(err)
		}
		return block(4, uint64(length))
	case FormData16:
		return block(0, 16)

	case FormString:
		s, n, err := d.r.CString(off)
		if err != nil {
			return fail(err)
		}
		h.Width = uint64(n)
		return StringValue{ValueHeader: h, Str: s}, nil

	case FormIndirect:
		code, n, err := d.r.ULEB128(off)
		if err != nil {
			return fail(err)
		}
		if Form(code) == FormIndirect {
			return fail(fmt.Errorf("%w: nested indirect", ErrUnknownForm))
		}
		v, err := d.value(off+uint64(n), attr, Form(code), implicit)
		if err != nil {
			return nil, err
		}
		return widen(v, off, uint64(n)), nil
	}

	return fail(ErrUnknownForm)
}

// widen accounts for the form code that precedes an indirect value.
func widen(v Value, off, prefix uint64) Value {
	adjust := func(h ValueHeader) ValueHeader {
		h.Offset = off
		h.Width += prefix
		return h
	}
	switch v := v.(type) {
	case FlagValue:
		v.ValueHeader = adjust(v.ValueHeader)
		return v
	case FlagPresentValue:
		v.ValueHeader = adjust(v.ValueHeader)
		return v
	case DataValue:
		v.ValueHeader = adjust(v.ValueHeader)
		return v
	case LEBValue:
		v.ValueHeader = adjust(v.ValueHeader)
		return v
	case OffsetValue:
		v.ValueHeader = adjust(v.ValueHeader)
		return v
	case BlockValue:
		v.ValueHeader = adjust(v.ValueHeader)
		return v
	case StringValue:
		v.ValueHeader = adjust(v.ValueHeader)
		return v
	}
	return v
}
