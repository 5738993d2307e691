package elf

import (
	"fmt"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

// StringTable is a view of a section holding NUL-terminated strings.
type StringTable struct {
	section *Section
	data    *buffer.Reader
}

// StringTable returns a string table view of s. Besides SHT_STRTAB it accepts
// SHT_PROGBITS sections, which is how .debug_str and vendor build metadata
// sections are emitted.
func (f *File) StringTable(s *Section) (*StringTable, error) {
	if s.Type != SectionTypeStrTab && s.Type != SectionTypeProgBits {
		return nil, fmt.Errorf("%w: section %q is %s, not a string table", ErrWrongSectionType, s.Name, s.Type)
	}
	data, err := f.Data(s)
	if err != nil {
		return nil, err
	}
	return &StringTable{section: s, data: data}, nil
}

// NewStringTable wraps raw string table bytes that do not come from a section header.
func NewStringTable(data *buffer.Reader) *StringTable {
	return &StringTable{section: &Section{Type: SectionTypeStrTab, Size: data.Len()}, data: data}
}

// Header returns the section header.
func (t *StringTable) Header() *Section { return t.section }

// String reads the string starting at byte offset off.
func (t *StringTable) String(off uint64) (string, error) {
	s, _, err := t.data.CString(off)
	if err != nil {
		return "", fmt.Errorf("string at offset 0x%x in %q: %w", off, t.section.Name, err)
	}
	return s, nil
}

// Strings returns every non-empty string in the table in order.
func (t *StringTable) Strings() ([]string, error) {
	var out []string
	for off := uint64(0); off < t.data.Len(); {
		s, n, err := t.data.CString(off)
		if err != nil {
			// Trailing bytes without a terminator.
			rest, _ := t.data.Bytes(off, t.data.Len()-off)
			out = append(out, string(rest))
			break
		}
		if s != "" {
			out = append(out, s)
		}
		off += uint64(n)
	}
	return out, nil
}
