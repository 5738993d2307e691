package testutil

import "encoding/binary"

// ELF classes accepted by NewELF.
const (
	ELFClass32 byte = 1
	ELFClass64 byte = 2
)

// Section types used by fixtures.
const (
	SHTProgBits uint32 = 1
	SHTSymTab   uint32 = 2
	SHTStrTab   uint32 = 3
	SHTNote     uint32 = 7
	SHTNoBits   uint32 = 8
	SHTDynSym   uint32 = 11
)

// ELFSection describes one section of a synthetic image.
type ELFSection struct {
	Name    string
	Type    uint32
	Flags   uint64
	Addr    uint64
	Data    []byte
	Link    uint32
	Info    uint32
	Align   uint64
	EntSize uint64
	// Size overrides len(Data), for NOBITS sections.
	Size uint64
}

// ELFBuilder assembles a minimal little-endian ELF image: header, section
// contents, a trailing .shstrtab and the section header table.
type ELFBuilder struct {
	Class byte
	// Data is EI_DATA; 1 is little-endian.
	Data  byte
	Magic [4]byte

	// Segments are written as the program header table.
	Segments []ELFSegment

	sections []ELFSection
}

// ELFSegment describes one program header.
type ELFSegment struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	Vaddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

// Program header values used by fixtures.
const (
	PTLoad uint32 = 1
	PFX    uint32 = 1
	PFW    uint32 = 2
	PFR    uint32 = 4
)

// NewELF returns a builder for the given class with an empty null section.
func NewELF(class byte) *ELFBuilder {
	return &ELFBuilder{Class: class, Data: 1, Magic: [4]byte{0x7f, 'E', 'L', 'F'}}
}

// AddSection appends s and returns its section index.
func (b *ELFBuilder) AddSection(s ELFSection) uint32 {
	b.sections = append(b.sections, s)
	return uint32(len(b.sections))
}

// NextIndex returns the index the next added section will get.
func (b *ELFBuilder) NextIndex() uint32 {
	return uint32(len(b.sections) + 1)
}

func (b *ELFBuilder) is64() bool {
	return b.Class == ELFClass64
}

// Bytes lays the image out.
func (b *ELFBuilder) Bytes() []byte {
	ehsize, shentsize := 52, 40
	if b.is64() {
		ehsize, shentsize = 64, 64
	}

	names := NewStringTable()
	all := append([]ELFSection{{}}, b.sections...)
	nameIdx := make([]uint32, len(all))
	for i := 1; i < len(all); i++ {
		nameIdx[i] = names.Add(all[i].Name)
	}
	shstrndx := len(all)
	nameIdx = append(nameIdx, names.Add(".shstrtab"))
	all = append(all, ELFSection{Name: ".shstrtab", Type: SHTStrTab, Data: names.Bytes(), Align: 1})

	out := make([]byte, ehsize)
	offsets := make([]uint64, len(all))
	for i := 1; i < len(all); i++ {
		out = pad(out, 8)
		offsets[i] = uint64(len(out))
		if all[i].Type != SHTNoBits {
			out = append(out, all[i].Data...)
		}
	}
	out = pad(out, 8)
	shoff := uint64(len(out))

	for i, s := range all {
		size := uint64(len(s.Data))
		if s.Size != 0 {
			size = s.Size
		}
		if i == 0 {
			size = 0
		}
		hdr := make([]byte, shentsize)
		le := binary.LittleEndian
		le.PutUint32(hdr[0:], nameIdx[i])
		le.PutUint32(hdr[4:], s.Type)
		if b.is64() {
			le.PutUint64(hdr[0x08:], s.Flags)
			le.PutUint64(hdr[0x10:], s.Addr)
			le.PutUint64(hdr[0x18:], offsets[i])
			le.PutUint64(hdr[0x20:], size)
			le.PutUint32(hdr[0x28:], s.Link)
			le.PutUint32(hdr[0x2c:], s.Info)
			le.PutUint64(hdr[0x30:], s.Align)
			le.PutUint64(hdr[0x38:], s.EntSize)
		} else {
			le.PutUint32(hdr[0x08:], uint32(s.Flags))
			le.PutUint32(hdr[0x0c:], uint32(s.Addr))
			le.PutUint32(hdr[0x10:], uint32(offsets[i]))
			le.PutUint32(hdr[0x14:], uint32(size))
			le.PutUint32(hdr[0x18:], s.Link)
			le.PutUint32(hdr[0x1c:], s.Info)
			le.PutUint32(hdr[0x20:], uint32(s.Align))
			le.PutUint32(hdr[0x24:], uint32(s.EntSize))
		}
		out = append(out, hdr...)
	}

	phoff, phentsize := uint64(len(out)), 32
	if b.is64() {
		phentsize = 56
	}
	for _, seg := range b.Segments {
		ph := make([]byte, phentsize)
		le := binary.LittleEndian
		le.PutUint32(ph[0:], seg.Type)
		if b.is64() {
			le.PutUint32(ph[0x04:], seg.Flags)
			le.PutUint64(ph[0x08:], seg.Offset)
			le.PutUint64(ph[0x10:], seg.Vaddr)
			le.PutUint64(ph[0x18:], seg.Vaddr)
			le.PutUint64(ph[0x20:], seg.Filesz)
			le.PutUint64(ph[0x28:], seg.Memsz)
			le.PutUint64(ph[0x30:], seg.Align)
		} else {
			le.PutUint32(ph[0x04:], uint32(seg.Offset))
			le.PutUint32(ph[0x08:], uint32(seg.Vaddr))
			le.PutUint32(ph[0x0c:], uint32(seg.Vaddr))
			le.PutUint32(ph[0x10:], uint32(seg.Filesz))
			le.PutUint32(ph[0x14:], uint32(seg.Memsz))
			le.PutUint32(ph[0x18:], seg.Flags)
			le.PutUint32(ph[0x1c:], uint32(seg.Align))
		}
		out = append(out, ph...)
	}
	if len(b.Segments) == 0 {
		phoff = 0
	}

	copy(out[0:4], b.Magic[:])
	out[4] = b.Class
	out[5] = b.Data
	out[6] = 1 // EV_CURRENT
	le := binary.LittleEndian
	le.PutUint16(out[0x10:], 2) // ET_EXEC
	le.PutUint32(out[0x14:], 1)
	if b.is64() {
		le.PutUint16(out[0x12:], 62) // EM_X86_64
		le.PutUint64(out[0x20:], phoff)
		le.PutUint64(out[0x28:], shoff)
		le.PutUint16(out[0x34:], uint16(ehsize))
		le.PutUint16(out[0x36:], uint16(phentsize))
		le.PutUint16(out[0x38:], uint16(len(b.Segments)))
		le.PutUint16(out[0x3a:], uint16(shentsize))
		le.PutUint16(out[0x3c:], uint16(len(all)))
		le.PutUint16(out[0x3e:], uint16(shstrndx))
	} else {
		le.PutUint16(out[0x12:], 3) // EM_386
		le.PutUint32(out[0x1c:], uint32(phoff))
		le.PutUint32(out[0x20:], uint32(shoff))
		le.PutUint16(out[0x28:], uint16(ehsize))
		le.PutUint16(out[0x2a:], uint16(phentsize))
		le.PutUint16(out[0x2c:], uint16(len(b.Segments)))
		le.PutUint16(out[0x2e:], uint16(shentsize))
		le.PutUint16(out[0x30:], uint16(len(all)))
		le.PutUint16(out[0x32:], uint16(shstrndx))
	}
	return out
}

func pad(b []byte, align int) []byte {
	for len(b)%align != 0 {
		b = append(b, 0)
	}
	return b
}

// StringTable builds a string table section; offset 0 is the empty string.
type StringTable struct {
	buf  []byte
	offs map[string]uint32
}

// NewStringTable returns a table holding only the leading NUL.
func NewStringTable() *StringTable {
	return &StringTable{buf: []byte{0}, offs: map[string]uint32{"": 0}}
}

// Add appends s unless present and returns its offset.
func (t *StringTable) Add(s string) uint32 {
	if off, ok := t.offs[s]; ok {
		return off
	}
	off := uint32(len(t.buf))
	t.buf = append(append(t.buf, s...), 0)
	t.offs[s] = off
	return off
}

// Bytes returns the encoded table.
func (t *StringTable) Bytes() []byte {
	return t.buf
}

// ELFSymbol is one symbol for EncodeSymbols.
type ELFSymbol struct {
	Name    string
	Value   uint64
	Size    uint64
	Type    uint8
	Bind    uint8
	Other   uint8
	Section uint16
}

// EncodeSymbols encodes syms after the mandatory null symbol in the layout of
// the given class and returns the symbol table, its string table and the
// record size.
func EncodeSymbols(class byte, syms []ELFSymbol) (symtab, strtab []byte, entsize uint64) {
	names := NewStringTable()
	le := binary.LittleEndian
	entsize = 16
	if class == ELFClass64 {
		entsize = 24
	}
	symtab = make([]byte, entsize)
	for _, s := range syms {
		rec := make([]byte, entsize)
		name := uint32(0)
		if s.Name != "" {
			name = names.Add(s.Name)
		}
		info := s.Bind<<4 | s.Type&0x0f
		if class == ELFClass64 {
			le.PutUint32(rec[0:], name)
			rec[4] = info
			rec[5] = s.Other
			le.PutUint16(rec[6:], s.Section)
			le.PutUint64(rec[8:], s.Value)
			le.PutUint64(rec[16:], s.Size)
		} else {
			le.PutUint32(rec[0:], name)
			le.PutUint32(rec[4:], uint32(s.Value))
			le.PutUint32(rec[8:], uint32(s.Size))
			rec[12] = info
			rec[13] = s.Other
			le.PutUint16(rec[14:], s.Section)
		}
		symtab = append(symtab, rec...)
	}
	return symtab, names.Bytes(), entsize
}

// AddSymbols adds .strtab and .symtab sections for syms.
func (b *ELFBuilder) AddSymbols(syms []ELFSymbol) (symtabIndex uint32) {
	symtab, strtab, entsize := EncodeSymbols(b.Class, syms)
	strIdx := b.AddSection(ELFSection{Name: ".strtab", Type: SHTStrTab, Data: strtab, Align: 1})
	return b.AddSection(ELFSection{
		Name: ".symtab", Type: SHTSymTab, Data: symtab,
		Link: strIdx, Info: 1, Align: 8, EntSize: entsize,
	})
}

// BuildIDNote encodes an NT_GNU_BUILD_ID note with the given descriptor.
func BuildIDNote(id []byte) []byte {
	le := binary.LittleEndian
	out := make([]byte, 12)
	le.PutUint32(out[0:], 4)
	le.PutUint32(out[4:], uint32(len(id)))
	le.PutUint32(out[8:], 3)
	out = append(out, 'G', 'N', 'U', 0)
	out = append(out, id...)
	return pad(out, 4)
}
