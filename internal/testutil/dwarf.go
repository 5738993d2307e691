package testutil

import (
	"encoding/binary"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

// Bytes is an append-only little-endian byte builder for debug section fixtures.
type Bytes struct {
	buf []byte
}

// U8 appends a byte.
func (b *Bytes) U8(v uint8) *Bytes { b.buf = append(b.buf, v); return b }

// U16 appends a little-endian uint16.
func (b *Bytes) U16(v uint16) *Bytes { b.buf = binary.LittleEndian.AppendUint16(b.buf, v); return b }

// U32 appends a little-endian uint32.
func (b *Bytes) U32(v uint32) *Bytes { b.buf = binary.LittleEndian.AppendUint32(b.buf, v); return b }

// U64 appends a little-endian uint64.
func (b *Bytes) U64(v uint64) *Bytes { b.buf = binary.LittleEndian.AppendUint64(b.buf, v); return b }

// ULEB appends an unsigned LEB128 value.
func (b *Bytes) ULEB(v uint64) *Bytes { b.buf = buffer.AppendULEB128(b.buf, v); return b }

// SLEB appends a signed LEB128 value.
func (b *Bytes) SLEB(v int64) *Bytes { b.buf = buffer.AppendSLEB128(b.buf, v); return b }

// CString appends s and a NUL.
func (b *Bytes) CString(s string) *Bytes { b.buf = append(append(b.buf, s...), 0); return b }

// Raw appends p verbatim.
func (b *Bytes) Raw(p ...byte) *Bytes { b.buf = append(b.buf, p...); return b }

// Len returns the number of bytes written.
func (b *Bytes) Len() int { return len(b.buf) }

// Bytes returns the built slice.
func (b *Bytes) Bytes() []byte { return b.buf }

// Abbrev describes one abbreviation declaration. Attrs holds (attribute, form)
// code pairs.
type Abbrev struct {
	Code     uint64
	Tag      uint64
	Children bool
	Attrs    [][2]uint64
}

// EncodeAbbrevs encodes decls followed by the terminating zero code.
func EncodeAbbrevs(decls ...Abbrev) []byte {
	b := &Bytes{}
	for _, d := range decls {
		b.ULEB(d.Code).ULEB(d.Tag)
		if d.Children {
			b.U8(1)
		} else {
			b.U8(0)
		}
		for _, af := range d.Attrs {
			b.ULEB(af[0]).ULEB(af[1])
		}
		b.ULEB(0).ULEB(0)
	}
	b.ULEB(0)
	return b.Bytes()
}

// Unit wraps entry bytes in a DWARF 2-4 compilation unit header.
type Unit struct {
	Version      uint16
	Is64         bool
	AbbrevOffset uint64
	AddrSize     uint8
}

// Encode returns the header followed by entries, with the unit length filled in.
func (u Unit) Encode(entries []byte) []byte {
	version := u.Version
	if version == 0 {
		version = 4
	}
	addrSize := u.AddrSize
	if addrSize == 0 {
		addrSize = 8
	}

	body := &Bytes{}
	body.U16(version)
	if u.Is64 {
		body.U64(u.AbbrevOffset)
	} else {
		body.U32(uint32(u.AbbrevOffset))
	}
	body.U8(addrSize).Raw(entries...)

	out := &Bytes{}
	if u.Is64 {
		out.U32(0xffffffff).U64(uint64(body.Len()))
	} else {
		out.U32(uint32(body.Len()))
	}
	return out.Raw(body.Bytes()...).Bytes()
}

// HeaderSize returns the encoded header size of u.
func (u Unit) HeaderSize() int {
	if u.Is64 {
		return 23
	}
	return 11
}

// LineFile is one file_names entry of a line program header.
type LineFile struct {
	Name    string
	Dir     uint64
	ModTime uint64
	Size    uint64
}

// LineProgram describes a DWARF 2-4 line program.
type LineProgram struct {
	Version       uint16
	Is64          bool
	MinInstLength uint8
	MaxOps        uint8
	DefaultIsStmt bool
	LineBase      int8
	LineRange     uint8
	OpcodeBase    uint8
	// StdOpcodeLengths defaults to the DWARF 4 table when nil.
	StdOpcodeLengths []uint64
	IncludeDirs      []string
	Files            []LineFile
	Program          []byte
}

// DefaultStdOpcodeLengths are the operand counts of standard opcodes 1..12.
var DefaultStdOpcodeLengths = []uint64{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}

// Encode returns the complete line program unit.
func (p LineProgram) Encode() []byte {
	version := p.Version
	if version == 0 {
		version = 4
	}
	lengths := p.StdOpcodeLengths
	if lengths == nil {
		lengths = DefaultStdOpcodeLengths
	}
	opcodeBase := p.OpcodeBase
	if opcodeBase == 0 {
		opcodeBase = uint8(len(lengths) + 1)
	}

	hdr := &Bytes{}
	hdr.U8(p.MinInstLength)
	if version >= 4 {
		hdr.U8(p.MaxOps)
	}
	if p.DefaultIsStmt {
		hdr.U8(1)
	} else {
		hdr.U8(0)
	}
	hdr.U8(uint8(p.LineBase)).U8(p.LineRange).U8(opcodeBase)
	for i := 0; i < int(opcodeBase)-1; i++ {
		var n uint64
		if i < len(lengths) {
			n = lengths[i]
		}
		hdr.ULEB(n)
	}
	for _, d := range p.IncludeDirs {
		hdr.CString(d)
	}
	hdr.U8(0)
	for _, f := range p.Files {
		hdr.CString(f.Name).ULEB(f.Dir).ULEB(f.ModTime).ULEB(f.Size)
	}
	hdr.U8(0)

	body := &Bytes{}
	body.U16(version)
	if p.Is64 {
		body.U64(uint64(hdr.Len()))
	} else {
		body.U32(uint32(hdr.Len()))
	}
	body.Raw(hdr.Bytes()...).Raw(p.Program...)

	out := &Bytes{}
	if p.Is64 {
		out.U32(0xffffffff).U64(uint64(body.Len()))
	} else {
		out.U32(uint32(body.Len()))
	}
	return out.Raw(body.Bytes()...).Bytes()
}
