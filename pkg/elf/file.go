// Package elf locates and classifies the sections of a little-endian ELF32 or
// ELF64 image held in memory.
//
// The catalog only reads what it is asked for: section headers are decoded on
// demand and section contents are handed out as bounded buffer.Readers over the
// shared image.
package elf

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

var (
	// ErrNotAnELFFile is returned when the image does not start with the ELF magic.
	ErrNotAnELFFile = errors.New("not an ELF file")

	// ErrUnsupportedBitness is returned for EI_CLASS values other than ELF32/ELF64.
	ErrUnsupportedBitness = errors.New("unsupported ELF class")

	// ErrUnsupportedEndianness is returned for images that are not little-endian.
	ErrUnsupportedEndianness = errors.New("unsupported ELF data encoding")

	// ErrSectionIndex is returned for a section index outside the header table.
	ErrSectionIndex = errors.New("section index out of range")

	// ErrWrongSectionType is returned when a typed view is requested for a
	// section of an incompatible type.
	ErrWrongSectionType = errors.New("wrong section type")
)

var magic = [4]byte{0x7f, 'E', 'L', 'F'}

const (
	identClass = 4
	identData  = 5

	dataLittleEndian = 1

	// shnUndef in e_shstrndx means the image has no section name table.
	shnUndef = 0
)

// headerLayout holds the ELF header field offsets for one file class. ELF32 and
// ELF64 headers are not layout compatible, so each class gets its own table.
type headerLayout struct {
	entry     uint64
	phoff     uint64
	shoff     uint64
	flags     uint64
	ehsize    uint64
	phentsize uint64
	phnum     uint64
	shentsize uint64
	shnum     uint64
	shstrndx  uint64
	wordSize  int
}

var headerLayout32 = headerLayout{
	entry:     0x18,
	phoff:     0x1c,
	shoff:     0x20,
	flags:     0x24,
	ehsize:    0x28,
	phentsize: 0x2a,
	phnum:     0x2c,
	shentsize: 0x2e,
	shnum:     0x30,
	shstrndx:  0x32,
	wordSize:  4,
}

var headerLayout64 = headerLayout{
	entry:     0x18,
	phoff:     0x20,
	shoff:     0x28,
	flags:     0x30,
	ehsize:    0x34,
	phentsize: 0x36,
	phnum:     0x38,
	shentsize: 0x3a,
	shnum:     0x3c,
	shstrndx:  0x3e,
	wordSize:  8,
}

// File is a parsed ELF header plus on-demand access to its sections.
type File struct {
	Class   Class
	Type    uint16
	Machine uint16
	Entry   uint64

	r      *buffer.Reader
	layout *headerLayout
	m      *buffer.Mapping

	sectionHeaderOffset    uint64
	sectionHeaderEntrySize uint16
	sectionCount           uint16
	stringTableIndex       uint16

	shstrtabOnce sync.Once
	shstrtab     *StringTable
	shstrtabErr  error
}

// Open maps the file at path and parses its ELF header.
func Open(path string) (*File, error) {
	m, err := buffer.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := NewFile(m.Reader())
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.m = m
	return f, nil
}

// NewFile parses the ELF header at the start of r.
func NewFile(r *buffer.Reader) (*File, error) {
	ident, err := r.Bytes(0, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAnELFFile, err)
	}
	if [4]byte(ident[:4]) != magic {
		return nil, ErrNotAnELFFile
	}

	f := &File{r: r, Class: Class(ident[identClass])}
	switch f.Class {
	case Class32:
		f.layout = &headerLayout32
	case Class64:
		f.layout = &headerLayout64
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitness, ident[identClass])
	}
	if ident[identData] != dataLittleEndian {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEndianness, ident[identData])
	}

	c := buffer.NewCursor(r, 0x10)
	f.Type = c.U16()
	f.Machine = c.U16()
	f.Entry, _ = r.Uint(f.layout.entry, f.layout.wordSize)

	if f.sectionHeaderOffset, err = r.Uint(f.layout.shoff, f.layout.wordSize); err != nil {
		return nil, fmt.Errorf("failed to read section header offset: %w", err)
	}
	if f.sectionHeaderEntrySize, err = r.Uint16(f.layout.shentsize); err != nil {
		return nil, fmt.Errorf("failed to read section header entry size: %w", err)
	}
	if f.sectionCount, err = r.Uint16(f.layout.shnum); err != nil {
		return nil, fmt.Errorf("failed to read section count: %w", err)
	}
	if f.stringTableIndex, err = r.Uint16(f.layout.shstrndx); err != nil {
		return nil, fmt.Errorf("failed to read section name table index: %w", err)
	}
	if err := c.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ELF header: %w", err)
	}

	return f, nil
}

// Close releases the mapping backing a file returned by Open.
func (f *File) Close() error {
	if f.m != nil {
		return f.m.Close()
	}
	return nil
}

// Reader returns a reader over the whole image.
func (f *File) Reader() *buffer.Reader {
	return f.r
}

// SectionCount returns e_shnum.
func (f *File) SectionCount() int {
	return int(f.sectionCount)
}

// SectionHeaderOffset returns e_shoff.
func (f *File) SectionHeaderOffset() uint64 {
	return f.sectionHeaderOffset
}

// SectionHeaderEntrySize returns e_shentsize.
func (f *File) SectionHeaderEntrySize() int {
	return int(f.sectionHeaderEntrySize)
}

// Section decodes the header of the section at index i. Its name is resolved
// through the section header string table when that table is readable.
func (f *File) Section(i int) (*Section, error) {
	s, err := f.rawSection(i)
	if err != nil {
		return nil, err
	}
	if f.stringTableIndex != shnUndef && i == int(f.stringTableIndex) {
		s.Name, _ = f.stringAt(s, s.NameIndex)
		return s, nil
	}
	names, err := f.SectionNames()
	if err == nil && names != nil {
		s.Name, _ = names.String(uint64(s.NameIndex))
	}
	return s, nil
}

// SectionByName returns the first section whose name is name, or nil when the
// file has no such section. Absence is not an error: most sections are optional,
// and an image without a section name table has no named sections at all.
func (f *File) SectionByName(name string) (*Section, error) {
	names, err := f.SectionNames()
	if err != nil || names == nil {
		return nil, err
	}
	for i := 0; i < f.SectionCount(); i++ {
		s, err := f.rawSection(i)
		if err != nil {
			return nil, err
		}
		candidate, err := names.String(uint64(s.NameIndex))
		if err != nil {
			continue
		}
		if candidate == name {
			s.Name = candidate
			return s, nil
		}
	}
	return nil, nil
}

// Sections iterates over every section header in index order.
func (f *File) Sections() iter.Seq2[*Section, error] {
	return func(yield func(*Section, error) bool) {
		for i := 0; i < f.SectionCount(); i++ {
			s, err := f.Section(i)
			if !yield(s, err) || err != nil {
				return
			}
		}
	}
}

// SectionNames returns the section header string table (.shstrtab). It
// returns nil, nil when the image has no section headers or e_shstrndx is
// SHN_UNDEF.
func (f *File) SectionNames() (*StringTable, error) {
	f.shstrtabOnce.Do(func() {
		if f.stringTableIndex == shnUndef || f.SectionCount() == 0 {
			return
		}
		s, err := f.rawSection(int(f.stringTableIndex))
		if err != nil {
			f.shstrtabErr = fmt.Errorf("section name table: %w", err)
			return
		}
		f.shstrtab, f.shstrtabErr = f.StringTable(s)
	})
	return f.shstrtab, f.shstrtabErr
}

// Data returns a reader over the contents of s. SHT_NOBITS sections occupy no
// file space and yield an empty reader.
func (f *File) Data(s *Section) (*buffer.Reader, error) {
	if s.Type == SectionTypeNoBits {
		return buffer.NewReader(nil), nil
	}
	r, err := f.r.Slice(s.Offset, s.Size)
	if err != nil {
		return nil, fmt.Errorf("section %q: %w", s.Name, err)
	}
	return r, nil
}

// SectionData looks a section up by name and returns its contents. It returns
// nil, nil when the section is absent.
func (f *File) SectionData(name string) (*buffer.Reader, error) {
	s, err := f.SectionByName(name)
	if err != nil || s == nil {
		return nil, err
	}
	return f.Data(s)
}

func (f *File) stringAt(s *Section, off uint32) (string, error) {
	r, err := f.Data(s)
	if err != nil {
		return "", err
	}
	str, _, err := r.CString(uint64(off))
	return str, err
}
