// Package inspect opens a binary image and wires the ELF catalog, the DWARF
// decoders and the symbolic projection into one session. It is the only layer
// that logs; formatting for humans is left to the CLI.
package inspect

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/dwarfscope/internal/config"
	errs "github.com/coral-mesh/dwarfscope/internal/errors"
	"github.com/coral-mesh/dwarfscope/pkg/dwarf"
	"github.com/coral-mesh/dwarfscope/pkg/dwarf/line"
	"github.com/coral-mesh/dwarfscope/pkg/elf"
	"github.com/coral-mesh/dwarfscope/pkg/symbolic"
)

var (
	// ErrNoDebugInfo is returned by DWARF queries on images without
	// .debug_info and .debug_abbrev.
	ErrNoDebugInfo = errors.New("image has no DWARF debug information")

	// ErrNoLineInfo is returned by line queries on images without .debug_line.
	ErrNoLineInfo = errors.New("image has no .debug_line section")

	// ErrSectionNotFound is returned when a named section is absent.
	ErrSectionNotFound = errors.New("section not found")
)

// Debug section names.
const (
	SectionInfo   = ".debug_info"
	SectionAbbrev = ".debug_abbrev"
	SectionStr    = ".debug_str"
	SectionLine   = ".debug_line"
)

// Session holds one opened image. Decoded results are built on first use and
// shared; a Session is safe for concurrent use.
type Session struct {
	Path string
	File *elf.File

	cfg    *config.Config
	logger zerolog.Logger

	data  *dwarf.Data
	lines *line.Section

	treeOnce  sync.Once
	tree      *dwarf.Tree
	modelOnce sync.Once
	model     *symbolic.Model
}

// Open maps the image at path and locates its debug sections.
func Open(path string, cfg *config.Config, logger zerolog.Logger) (*Session, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	s, err := New(f, cfg, logger)
	if err != nil {
		errs.DeferClose(logger, f, "Failed to close image")
		return nil, err
	}
	s.Path = path
	return s, nil
}

// New builds a session over an already parsed file.
func New(f *elf.File, cfg *config.Config, logger zerolog.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Session{
		File:   f,
		cfg:    cfg,
		logger: logger.With().Str("component", "inspect").Logger(),
	}

	info, err := f.SectionData(SectionInfo)
	if err != nil {
		return nil, err
	}
	abbrev, err := f.SectionData(SectionAbbrev)
	if err != nil {
		return nil, err
	}
	str, err := f.SectionData(SectionStr)
	if err != nil {
		return nil, err
	}
	if info != nil && abbrev != nil {
		s.data, err = dwarf.New(info, abbrev, str)
		if err != nil {
			return nil, err
		}
	} else {
		s.logger.Debug().
			Bool("has_info", info != nil).
			Bool("has_abbrev", abbrev != nil).
			Msg("DWARF debug info not available")
	}

	if !cfg.Decode.SkipLines {
		lines, err := f.SectionData(SectionLine)
		if err != nil {
			return nil, err
		}
		if lines != nil {
			s.lines = line.NewSection(lines)
		}
	}

	s.logger.Debug().
		Str("class", f.Class.String()).
		Int("sections", f.SectionCount()).
		Bool("dwarf", s.data != nil).
		Bool("lines", s.lines != nil).
		Msg("Image opened")
	return s, nil
}

// Close releases the mapping.
func (s *Session) Close() error {
	return s.File.Close()
}

// Config returns the configuration the session was opened with.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// HasDWARF reports whether the image carries .debug_info and .debug_abbrev.
func (s *Session) HasDWARF() bool {
	return s.data != nil
}

// Data returns the DWARF decoder.
func (s *Session) Data() (*dwarf.Data, error) {
	if s.data == nil {
		return nil, ErrNoDebugInfo
	}
	return s.data, nil
}

// Tree decodes .debug_info once. Units that fail to decode are logged and
// left out; the rest of the tree is still returned.
func (s *Session) Tree() (*dwarf.Tree, error) {
	if s.data == nil {
		return nil, ErrNoDebugInfo
	}
	s.treeOnce.Do(func() {
		s.tree = s.data.Decode()
		for _, ue := range s.tree.Failed {
			ev := s.logger.Warn().
				Err(ue.Err).
				Uint64("offset", ue.Offset).
				Str("section", SectionInfo)
			if ue.Unit != nil {
				ev = ev.Uint16("version", ue.Unit.Version)
			}
			ev.Msg("Abandoned compilation unit")
		}
		s.logger.Debug().
			Int("units", len(s.tree.Units)).
			Int("failed", len(s.tree.Failed)).
			Int("abbrev_tables", s.data.Abbrevs().Cached()).
			Msg("Decoded debug info")
	})
	return s.tree, nil
}

// Index returns the offset index over the decoded tree.
func (s *Session) Index() (*dwarf.Index, error) {
	tree, err := s.Tree()
	if err != nil {
		return nil, err
	}
	return tree.Index(), nil
}

// Model returns the symbolic projection over the decoded tree.
func (s *Session) Model() (*symbolic.Model, error) {
	tree, err := s.Tree()
	if err != nil {
		return nil, err
	}
	s.modelOnce.Do(func() {
		s.model = symbolic.New(s.data, tree)
	})
	return s.model, nil
}

// Lines returns the .debug_line decoder, or nil when the image has none or
// line decoding is disabled.
func (s *Session) Lines() *line.Section {
	return s.lines
}

// LineTable runs the line program at off.
func (s *Session) LineTable(off uint64) (*line.Table, error) {
	if s.lines == nil {
		return nil, ErrNoLineInfo
	}
	return s.lines.Table(off)
}

// SourceLines returns the line rows of every compilation unit named like path.
// Programs that fail to decode are logged and skipped.
func (s *Session) SourceLines(path string) ([]line.Row, error) {
	if s.lines == nil {
		return nil, ErrNoLineInfo
	}
	m, err := s.Model()
	if err != nil {
		return nil, err
	}
	rows, err := m.SourceLines(s.lines, path)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", path).Msg("Some line programs could not be decoded")
	}
	return rows, nil
}

// Symbols returns the entries of .symtab, falling back to .dynsym. It
// returns nil when the image carries neither.
func (s *Session) Symbols() ([]elf.Symbol, error) {
	for _, name := range []string{".symtab", ".dynsym"} {
		sec, err := s.File.SectionByName(name)
		if err != nil {
			return nil, err
		}
		if sec == nil {
			continue
		}
		table, err := s.File.SymbolTable(sec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		syms, err := table.Symbols()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		s.logger.Debug().Str("section", name).Int("symbols", len(syms)).Msg("Symbol table loaded")
		return syms, nil
	}
	return nil, nil
}

// Strings dumps the named section as a string table.
func (s *Session) Strings(name string) ([]string, error) {
	sec, err := s.File.SectionByName(name)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, name)
	}
	table, err := s.File.StringTable(sec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return table.Strings()
}

// Metadata dumps the vendor build metadata sections selected by the
// configured prefix.
func (s *Session) Metadata() ([]elf.MetadataSection, error) {
	return s.File.Metadata(s.cfg.Decode.MetadataPrefix)
}

// Identity returns the build-id or, failing that, the image fingerprint.
func (s *Session) Identity() (string, error) {
	return s.File.Identity()
}
