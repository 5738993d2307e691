package elf

import (
	"fmt"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

// Section is a decoded section header.
type Section struct {
	Index     int
	Name      string
	NameIndex uint32
	Type      SectionType
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Align     uint64
	EntrySize uint64
}

// sectionLayout holds section header field offsets for one file class.
type sectionLayout struct {
	flags     uint64
	addr      uint64
	offset    uint64
	size      uint64
	link      uint64
	info      uint64
	align     uint64
	entsize   uint64
	wordSize  int
	entrySize uint64
}

var sectionLayout32 = sectionLayout{
	flags: 0x08, addr: 0x0c, offset: 0x10, size: 0x14,
	link: 0x18, info: 0x1c, align: 0x20, entsize: 0x24,
	wordSize: 4, entrySize: 0x28,
}

var sectionLayout64 = sectionLayout{
	flags: 0x08, addr: 0x10, offset: 0x18, size: 0x20,
	link: 0x28, info: 0x2c, align: 0x30, entsize: 0x38,
	wordSize: 8, entrySize: 0x40,
}

func (f *File) sectionLayout() *sectionLayout {
	if f.Class == Class32 {
		return &sectionLayout32
	}
	return &sectionLayout64
}

// rawSection decodes the header at index i without resolving its name.
func (f *File) rawSection(i int) (*Section, error) {
	if i < 0 || i >= f.SectionCount() {
		return nil, fmt.Errorf("%w: %d of %d", ErrSectionIndex, i, f.SectionCount())
	}
	l := f.sectionLayout()
	entsize := uint64(f.sectionHeaderEntrySize)
	if entsize < l.entrySize {
		return nil, fmt.Errorf("section header entry size %d is smaller than %d", entsize, l.entrySize)
	}

	base := f.sectionHeaderOffset + uint64(i)*entsize
	hdr, err := f.r.Slice(base, l.entrySize)
	if err != nil {
		return nil, fmt.Errorf("section header %d: %w", i, err)
	}

	s := &Section{Index: i}
	// Bounds were checked by Slice; the reads below cannot fail.
	s.NameIndex, _ = hdr.Uint32(0)
	typ, _ := hdr.Uint32(4)
	s.Type = SectionType(typ)
	s.Flags, _ = hdr.Uint(l.flags, l.wordSize)
	s.Addr, _ = hdr.Uint(l.addr, l.wordSize)
	s.Offset, _ = hdr.Uint(l.offset, l.wordSize)
	s.Size, _ = hdr.Uint(l.size, l.wordSize)
	s.Link, _ = hdr.Uint32(l.link)
	s.Info, _ = hdr.Uint32(l.info)
	s.Align, _ = hdr.Uint(l.align, l.wordSize)
	s.EntrySize, _ = hdr.Uint(l.entsize, l.wordSize)
	return s, nil
}

// View is a typed view of a section chosen by its declared type.
type View interface {
	Header() *Section
}

// ProgBits is a view of a SHT_PROGBITS section: raw program-defined bytes.
type ProgBits struct {
	section *Section
	data    *buffer.Reader
}

// Header returns the section header.
func (p *ProgBits) Header() *Section { return p.section }

// Data returns the section contents.
func (p *ProgBits) Data() *buffer.Reader { return p.data }

// Generic is a view of any section without a dedicated type.
type Generic struct {
	section *Section
}

// Header returns the section header.
func (g *Generic) Header() *Section { return g.section }

// View dispatches s to a typed view: *StringTable for SHT_STRTAB, *SymbolTable
// for SHT_SYMTAB/SHT_DYNSYM, *ProgBits for SHT_PROGBITS and *Generic otherwise.
func (f *File) View(s *Section) (View, error) {
	switch s.Type {
	case SectionTypeStrTab:
		return f.StringTable(s)
	case SectionTypeSymTab, SectionTypeDynSym:
		return f.SymbolTable(s)
	case SectionTypeProgBits:
		data, err := f.Data(s)
		if err != nil {
			return nil, err
		}
		return &ProgBits{section: s, data: data}, nil
	default:
		return &Generic{section: s}, nil
	}
}
