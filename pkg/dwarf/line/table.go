package line

import (
	"sort"
	"sync"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

// Table is an executed line program.
type Table struct {
	Header *Header
	// Files is the header's file table plus any define_file additions.
	Files []FileEntry
	Rows  []Row
}

// Run decodes the header at off and executes its program to the end of the unit.
func Run(r *buffer.Reader, off uint64) (*Table, error) {
	h, err := ParseHeader(r, off)
	if err != nil {
		return nil, err
	}

	// Operands must not run into the next unit.
	prog, err := r.Slice(0, h.End)
	if err != nil {
		return nil, err
	}

	m := NewMachine(h)
	var rows []Row
	for pc := h.ProgramOffset; pc < h.End; {
		ins, err := Decode(prog, pc, h)
		if err != nil {
			return nil, err
		}
		if row, ok := m.Apply(ins); ok {
			rows = append(rows, row)
		}
		pc += ins.Width
	}
	return &Table{Header: h, Files: m.Files, Rows: rows}, nil
}

// Sequences splits the rows at end_sequence boundaries.
func (t *Table) Sequences() [][]Row {
	var out [][]Row
	start := 0
	for i, row := range t.Rows {
		if row.EndSequence {
			out = append(out, t.Rows[start:i+1])
			start = i + 1
		}
	}
	if start < len(t.Rows) {
		out = append(out, t.Rows[start:])
	}
	return out
}

// Lookup returns the row whose address range covers addr. A row covers the
// addresses up to the next row of its sequence; end_sequence rows cover nothing.
func (t *Table) Lookup(addr uint64) (Row, bool) {
	for _, seq := range t.Sequences() {
		if len(seq) < 2 || addr < seq[0].Address || addr >= seq[len(seq)-1].Address {
			continue
		}
		i := sort.Search(len(seq), func(i int) bool { return seq[i].Address > addr })
		if i > 0 {
			return seq[i-1], true
		}
	}
	return Row{}, false
}

// Section executes line programs from .debug_line. Tables are cached by
// offset; it is safe for concurrent use.
type Section struct {
	r *buffer.Reader

	mu     sync.RWMutex
	tables map[uint64]*Table
}

// NewSection returns a decoder over the contents of .debug_line.
func NewSection(r *buffer.Reader) *Section {
	return &Section{r: r, tables: make(map[uint64]*Table)}
}

// Table returns the executed program at off, normally a DW_AT_stmt_list value.
func (s *Section) Table(off uint64) (*Table, error) {
	s.mu.RLock()
	t, ok := s.tables[off]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := Run(s.r, off)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cached, ok := s.tables[off]; ok {
		t = cached
	} else {
		s.tables[off] = t
	}
	s.mu.Unlock()
	return t, nil
}
