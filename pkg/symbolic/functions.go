package symbolic

import (
	"sort"

	"github.com/coral-mesh/dwarfscope/pkg/dwarf"
)

// Function is a subprogram with a code range.
type Function struct {
	Name        string
	LinkageName string
	LowPC       uint64
	HighPC      uint64
	Entry       *dwarf.Entry
	// CompileUnit is the top-level entry the function belongs to.
	CompileUnit *dwarf.Entry
}

// Contains reports whether addr falls in [LowPC, HighPC).
func (f Function) Contains(addr uint64) bool {
	return addr >= f.LowPC && addr < f.HighPC
}

// pcRange reads DW_AT_low_pc and DW_AT_high_pc. A constant-class high_pc is
// an offset from low_pc; an address-class one is absolute. Indexed addresses
// need .debug_addr, which is not read, so such entries have no range.
func pcRange(e *dwarf.Entry) (low, high uint64, ok bool) {
	lv, hv := e.Val(dwarf.AttrLowPC), e.Val(dwarf.AttrHighPC)
	if lv == nil || hv == nil || isAddrIndex(lv.Header().Form) || isAddrIndex(hv.Header().Form) {
		return 0, 0, false
	}
	if low, ok = dwarf.AsUint(lv); !ok {
		return 0, 0, false
	}
	if high, ok = dwarf.AsUint(hv); !ok {
		return 0, 0, false
	}
	if hv.Header().Form != dwarf.FormAddr {
		high += low
	}
	return low, high, high > low
}

func isAddrIndex(f dwarf.Form) bool {
	switch f {
	case dwarf.FormAddrx, dwarf.FormAddrx1, dwarf.FormAddrx2, dwarf.FormAddrx3, dwarf.FormAddrx4:
		return true
	}
	return false
}

// Functions returns every subprogram that has a code range, sorted by LowPC.
// The slice is computed once and shared; callers must not modify it.
func (m *Model) Functions() []Function {
	m.funcsOnce.Do(func() {
		for _, cu := range m.tree.Entries {
			collectFunctions(m, cu, cu, &m.funcs)
		}
		sort.SliceStable(m.funcs, func(i, j int) bool { return m.funcs[i].LowPC < m.funcs[j].LowPC })
	})
	return m.funcs
}

func collectFunctions(m *Model, cu, e *dwarf.Entry, out *[]Function) {
	if e.Tag == dwarf.TagSubprogram {
		if low, high, ok := pcRange(e); ok {
			*out = append(*out, Function{
				Name:        m.Name(e),
				LinkageName: m.LinkageName(e),
				LowPC:       low,
				HighPC:      high,
				Entry:       e,
				CompileUnit: cu,
			})
		}
	}
	for _, child := range e.Children {
		collectFunctions(m, cu, child, out)
	}
}

// FunctionAt returns the innermost-starting function whose range contains addr.
func (m *Model) FunctionAt(addr uint64) (Function, bool) {
	var (
		best  Function
		found bool
	)
	for _, f := range m.Functions() {
		if f.Contains(addr) && (!found || f.LowPC >= best.LowPC) {
			best, found = f, true
		}
	}
	return best, found
}

// FindFunctions returns the named functions matching pattern, by LowPC.
func (m *Model) FindFunctions(pattern string) []Function {
	var out []Function
	for _, f := range m.Functions() {
		if f.Name != "" && matchesPattern(f.Name, pattern) {
			out = append(out, f)
		}
	}
	return out
}

// ListFunctions returns the names of functions matching pattern.
func (m *Model) ListFunctions(pattern string) []string {
	var names []string
	for _, f := range m.FindFunctions(pattern) {
		names = append(names, f.Name)
	}
	return names
}
