package elf

import (
	"fmt"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

// Symbol is one decoded symbol table record.
type Symbol struct {
	Name         string
	NameIndex    uint32
	Value        uint64
	Size         uint64
	Info         uint8
	Other        uint8
	Type         SymbolType
	Bind         SymbolBind
	Visibility   SymbolVisibility
	SectionIndex uint16
}

// symbolLayout holds the field offsets of one symbol record layout.
//
//	Elf32_Sym: name(4) value(4) size(4) info(1) other(1) shndx(2)
//	Elf64_Sym: name(4) info(1) other(1) shndx(2) value(8) size(8)
type symbolLayout struct {
	name     uint64
	value    uint64
	size     uint64
	info     uint64
	other    uint64
	shndx    uint64
	wordSize int
	recSize  uint64
}

var symbol32Layout = symbolLayout{
	name: 0, value: 4, size: 8, info: 12, other: 13, shndx: 14,
	wordSize: 4, recSize: 16,
}

var symbol64Layout = symbolLayout{
	name: 0, info: 4, other: 5, shndx: 6, value: 8, size: 16,
	wordSize: 8, recSize: 24,
}

// SymbolTable is a view of a SHT_SYMTAB or SHT_DYNSYM section.
type SymbolTable struct {
	section *Section
	data    *buffer.Reader
	layout  *symbolLayout
	names   *StringTable
}

// SymbolTable returns a symbol table view of s. Symbol names are resolved
// through the string table named by the section's sh_link field.
func (f *File) SymbolTable(s *Section) (*SymbolTable, error) {
	if s.Type != SectionTypeSymTab && s.Type != SectionTypeDynSym {
		return nil, fmt.Errorf("%w: section %q is %s, not a symbol table", ErrWrongSectionType, s.Name, s.Type)
	}
	data, err := f.Data(s)
	if err != nil {
		return nil, err
	}

	layout := &symbol64Layout
	if f.Class == Class32 {
		layout = &symbol32Layout
	}
	t := &SymbolTable{section: s, data: data, layout: layout}

	if s.Link != 0 {
		link, err := f.Section(int(s.Link))
		if err != nil {
			return nil, fmt.Errorf("symbol table %q string table: %w", s.Name, err)
		}
		if t.names, err = f.StringTable(link); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Header returns the section header.
func (t *SymbolTable) Header() *Section { return t.section }

// entrySize prefers the declared sh_entsize and falls back to the layout size.
func (t *SymbolTable) entrySize() uint64 {
	if t.section.EntrySize >= t.layout.recSize {
		return t.section.EntrySize
	}
	return t.layout.recSize
}

// Len returns the number of records in the table.
func (t *SymbolTable) Len() int {
	return int(t.data.Len() / t.entrySize())
}

// Symbol decodes the i-th record.
func (t *SymbolTable) Symbol(i int) (Symbol, error) {
	if i < 0 || i >= t.Len() {
		return Symbol{}, fmt.Errorf("symbol %d of %d in %q: %w", i, t.Len(), t.section.Name, ErrSectionIndex)
	}
	rec, err := t.data.Slice(uint64(i)*t.entrySize(), t.layout.recSize)
	if err != nil {
		return Symbol{}, err
	}
	sym := decodeSymbol(rec, t.layout)

	if t.names != nil && sym.NameIndex != 0 {
		if sym.Name, err = t.names.String(uint64(sym.NameIndex)); err != nil {
			return Symbol{}, fmt.Errorf("symbol %d name: %w", i, err)
		}
	}
	return sym, nil
}

// Symbols decodes every record in the table.
func (t *SymbolTable) Symbols() ([]Symbol, error) {
	out := make([]Symbol, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		sym, err := t.Symbol(i)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}

// decodeSymbol reads one record; rec is exactly l.recSize bytes long.
func decodeSymbol(rec *buffer.Reader, l *symbolLayout) Symbol {
	var sym Symbol
	sym.NameIndex, _ = rec.Uint32(l.name)
	sym.Value, _ = rec.Uint(l.value, l.wordSize)
	sym.Size, _ = rec.Uint(l.size, l.wordSize)
	sym.Info, _ = rec.Uint8(l.info)
	sym.Other, _ = rec.Uint8(l.other)
	sym.SectionIndex, _ = rec.Uint16(l.shndx)

	sym.Type = SymbolType(sym.Info & 0x0f)
	sym.Bind = SymbolBind(sym.Info >> 4)
	sym.Visibility = SymbolVisibility(sym.Other & 0x03)
	return sym
}
