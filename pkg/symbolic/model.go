// Package symbolic projects a decoded DWARF tree onto the declarations a
// debugger front end works with: classes, their fields and methods, functions
// with address ranges, and source files with their line tables.
//
// The projection is read-only and lazy. Nothing is copied out of the tree;
// names are resolved through .debug_str when a view is built.
package symbolic

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/coral-mesh/dwarfscope/pkg/dwarf"
	"github.com/coral-mesh/dwarfscope/pkg/dwarf/line"
)

// Model answers symbolic queries over one decoded tree.
type Model struct {
	data  *dwarf.Data
	tree  *dwarf.Tree
	index *dwarf.Index

	funcsOnce sync.Once
	funcs     []Function
}

// New returns a model over tree, which must have been decoded from data.
func New(data *dwarf.Data, tree *dwarf.Tree) *Model {
	return &Model{data: data, tree: tree, index: tree.Index()}
}

// Index returns the offset index the model resolves references through.
func (m *Model) Index() *dwarf.Index {
	return m.index
}

// Name returns the name of e. Out-of-line definitions that only point at
// their declaration through DW_AT_specification or DW_AT_abstract_origin
// take the declaration's name.
func (m *Model) Name(e *dwarf.Entry) string {
	for range 4 {
		if name := m.data.Name(e); name != "" {
			return name
		}
		next, ok := m.index.Resolve(e, dwarf.AttrSpecification)
		if !ok {
			next, ok = m.index.Resolve(e, dwarf.AttrAbstractOrigin)
		}
		if !ok {
			return ""
		}
		e = next
	}
	return ""
}

// LinkageName returns the mangled name of e, if any.
func (m *Model) LinkageName(e *dwarf.Entry) string {
	for _, attr := range []dwarf.Attr{dwarf.AttrLinkageName, dwarf.AttrMIPSLinkageName} {
		if s, ok, _ := m.data.AttrString(e, attr); ok {
			return s
		}
	}
	return ""
}

// CompileUnits returns the top-level compile unit entries in section order.
func (m *Model) CompileUnits() []*dwarf.Entry {
	var out []*dwarf.Entry
	for _, e := range m.tree.Entries {
		if e.Tag == dwarf.TagCompileUnit || e.Tag == dwarf.TagPartialUnit {
			out = append(out, e)
		}
	}
	return out
}

// SourceLines returns the line rows of every compile unit whose DW_AT_name
// has the same base name as path. Rows are concatenated in unit order; units
// sharing a line program contribute it once. Programs that fail to decode are
// skipped and reported in the returned error alongside the rows that did.
func (m *Model) SourceLines(lines *line.Section, path string) ([]line.Row, error) {
	if lines == nil {
		return nil, nil
	}
	base := filepath.Base(path)

	var (
		rows []line.Row
		errs []error
		seen = make(map[uint64]bool)
	)
	for _, cu := range m.CompileUnits() {
		if filepath.Base(m.data.Name(cu)) != base {
			continue
		}
		off, ok := cu.Uint(dwarf.AttrStmtList)
		if !ok || seen[off] {
			continue
		}
		seen[off] = true

		table, err := lines.Table(off)
		if err != nil {
			errs = append(errs, fmt.Errorf("line program at 0x%x for %s: %w", off, base, err))
			continue
		}
		rows = append(rows, table.Rows...)
	}
	return rows, errors.Join(errs...)
}

// matchesPattern checks if a name matches the given pattern.
// Supports exact names, a trailing "*" wildcard and package patterns
// like "com.example/*".
func matchesPattern(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return strings.HasPrefix(name, prefix)
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}

	return name == pattern
}
