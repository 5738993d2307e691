// Package symbolizer resolves code addresses to function names and source
// positions, preferring DWARF and falling back to the ELF symbol table.
package symbolizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coral-mesh/dwarfscope/internal/config"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
	"github.com/coral-mesh/dwarfscope/internal/safe"
	"github.com/coral-mesh/dwarfscope/pkg/dwarf"
	"github.com/coral-mesh/dwarfscope/pkg/elf"
	"github.com/coral-mesh/dwarfscope/pkg/symbolic"
)

var (
	// ErrNoSymbols is returned by New for images with neither DWARF nor a
	// symbol table.
	ErrNoSymbols = errors.New("binary has no debug info or symbol table (stripped binary?)")

	// ErrNotFound is returned when no function covers an address.
	ErrNotFound = errors.New("symbol not found")
)

// Source names where a symbol was resolved from.
type Source string

const (
	SourceDWARF  Source = "dwarf"
	SourceSymtab Source = "symtab"
)

// Symbol represents a resolved symbol with function name and location.
type Symbol struct {
	// Address is the address that was asked for.
	Address uint64
	// FileAddress is Address translated to the image's link-time layout.
	FileAddress  uint64
	FunctionName string
	Package      string
	// Offset is the distance from the start of the function.
	Offset   uint64
	FileName string
	Line     int
	Column   int
	Source   Source
}

// Symbolizer resolves memory addresses to function names using DWARF debug info.
type Symbolizer struct {
	session *inspect.Session
	model   *symbolic.Model
	symtab  []elf.Symbol
	cache   *lruCache
	logger  zerolog.Logger

	runtimeLoadAddr uint64 // Runtime load address of the executable mapping
	elfBaseAddr     uint64 // Base address from ELF PT_LOAD segment
}

// New creates a symbolizer over an opened session.
func New(s *inspect.Session, cfg config.SymbolizerConfig, logger zerolog.Logger) (*Symbolizer, error) {
	sym := &Symbolizer{
		session:         s,
		logger:          logger.With().Str("component", "symbolizer").Logger(),
		runtimeLoadAddr: cfg.LoadAddress,
		elfBaseAddr:     cfg.BaseAddress,
	}
	if cfg.CacheEntries > 0 {
		sym.cache = newLRUCache(cfg.CacheEntries)
	}

	if sym.runtimeLoadAddr > 0 && sym.elfBaseAddr == 0 {
		base, ok, err := s.File.TextBase()
		if err != nil {
			sym.logger.Warn().Err(err).Msg("Failed to read program headers, symbolization may be incorrect for PIE binaries")
		} else if ok {
			sym.elfBaseAddr = base
		}
	}

	sym.logger.Debug().
		Uint64("elf_base", sym.elfBaseAddr).
		Uint64("runtime_load", sym.runtimeLoadAddr).
		Msg("Symbolizer initialized with address mapping")

	if s.HasDWARF() {
		model, err := s.Model()
		if err != nil {
			sym.logger.Debug().Err(err).Msg("DWARF debug info not available, using symbol table only")
		} else {
			sym.model = model
		}
	}

	symbols, err := s.Symbols()
	if err != nil {
		sym.logger.Debug().Err(err).Msg("Symbol table not available")
	}
	for _, es := range symbols {
		if es.Type == elf.SymbolTypeFunc && es.Size > 0 {
			sym.symtab = append(sym.symtab, es)
		}
	}
	sort.Slice(sym.symtab, func(i, j int) bool { return sym.symtab[i].Value < sym.symtab[j].Value })
	sym.logger.Debug().Int("symbol_count", len(sym.symtab)).Msg("Symbol table loaded")

	if sym.model == nil && len(sym.symtab) == 0 {
		return nil, ErrNoSymbols
	}
	return sym, nil
}

// Translate converts a runtime address to the image's link-time address:
// fileAddr = runtimeAddr - runtimeLoadAddr + elfBaseAddr.
func (s *Symbolizer) Translate(addr uint64) uint64 {
	if s.runtimeLoadAddr == 0 {
		return addr
	}
	return addr - s.runtimeLoadAddr + s.elfBaseAddr
}

// Resolve resolves a memory address to a symbol.
// DWARF gives the function and file:line; the symbol table gives the
// function name only.
func (s *Symbolizer) Resolve(addr uint64) (Symbol, error) {
	if s.cache != nil {
		if sym, ok := s.cache.Get(addr); ok {
			return sym, nil
		}
	}

	fileAddr := s.Translate(addr)
	if fileAddr != addr {
		s.logger.Trace().
			Uint64("runtime_addr", addr).
			Uint64("file_addr", fileAddr).
			Msg("Converted runtime address to file address")
	}

	sym, ok := s.resolveDWARF(fileAddr)
	if !ok {
		sym, ok = s.resolveSymTab(fileAddr)
	}
	if !ok {
		return Symbol{}, fmt.Errorf("%w for address 0x%x (file address 0x%x)", ErrNotFound, addr, fileAddr)
	}

	sym.Address = addr
	sym.FileAddress = fileAddr
	sym.Package = extractPackageName(sym.FunctionName)
	if s.cache != nil {
		s.cache.Put(addr, sym)
	}
	return sym, nil
}

// Result pairs a resolved symbol with its lookup error.
type Result struct {
	Symbol Symbol
	Err    error
}

// ResolveAll resolves addrs with up to workers concurrent lookups. Results are
// in input order; per-address failures are reported in Result.Err.
func (s *Symbolizer) ResolveAll(ctx context.Context, addrs []uint64, workers int) ([]Result, error) {
	results := make([]Result, len(addrs))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, addr := range addrs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sym, err := s.Resolve(addr)
			results[i] = Result{Symbol: sym, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolveDWARF resolves an address using DWARF subprogram ranges and the line
// program of the enclosing compilation unit.
func (s *Symbolizer) resolveDWARF(addr uint64) (Symbol, bool) {
	if s.model == nil {
		return Symbol{}, false
	}
	fn, ok := s.model.FunctionAt(addr)
	if !ok || fn.Name == "" {
		return Symbol{}, false
	}
	sym := Symbol{
		FunctionName: fn.Name,
		Offset:       addr - fn.LowPC,
		Source:       SourceDWARF,
	}

	off, ok := fn.CompileUnit.Uint(dwarf.AttrStmtList)
	if !ok || s.session.Lines() == nil {
		return sym, true
	}
	table, err := s.session.LineTable(off)
	if err != nil {
		s.logger.Debug().Err(err).Uint64("stmt_list", off).Msg("Line program unavailable")
		return sym, true
	}
	if row, ok := table.Lookup(addr); ok {
		sym.FileName = table.Header.FilePath(row.File)
		sym.Line, _ = safe.Uint64ToInt(row.Line)
		sym.Column, _ = safe.Uint64ToInt(row.Column)
	}
	return sym, true
}

// resolveSymTab resolves an address using the symbol table.
func (s *Symbolizer) resolveSymTab(addr uint64) (Symbol, bool) {
	// Walk back from the last symbol starting at or below addr; sizes may
	// overlap, so the nearest start is not always the container.
	i := sort.Search(len(s.symtab), func(i int) bool { return s.symtab[i].Value > addr })
	for i--; i >= 0; i-- {
		es := s.symtab[i]
		if addr < es.Value+es.Size {
			return Symbol{
				FunctionName: es.Name,
				Offset:       addr - es.Value,
				Source:       SourceSymtab,
			}, true
		}
	}
	return Symbol{}, false
}

// CacheLen returns the number of cached symbols.
func (s *Symbolizer) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

// FormatSymbol formats a symbol for display.
func FormatSymbol(sym Symbol) string {
	if sym.FileName != "" && sym.Line > 0 {
		return fmt.Sprintf("%s (%s:%d)", sym.FunctionName, sym.FileName, sym.Line)
	}
	if sym.Offset > 0 {
		return fmt.Sprintf("%s+0x%x", sym.FunctionName, sym.Offset)
	}
	return sym.FunctionName
}

// extractPackageName returns everything before the last dot of a qualified
// function name, e.g. "demo.Main" for "demo.Main.run".
func extractPackageName(functionName string) string {
	// Go method expressions like "(*Type).Method" carry no package.
	if strings.HasPrefix(functionName, "(") {
		return ""
	}

	lastDot := strings.LastIndex(functionName, ".")
	if lastDot == -1 {
		return ""
	}

	return functionName[:lastDot]
}
