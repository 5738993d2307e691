// Package line decodes DWARF 2 to 4 line-number programs from .debug_line
// into tables of address to source position rows.
//
// Execution is split in two: Decode turns bytes into Instructions, and a
// Machine applies instructions to an explicit State, emitting a Row whenever
// the program commits one.
package line

import (
	"errors"
	"fmt"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
	"github.com/coral-mesh/dwarfscope/pkg/dwarf"
)

var (
	// ErrUnsupportedLineProgramVersion is returned for DWARF 5 line programs,
	// whose entry-format directory and file tables are not decoded, and for
	// versions outside 2..5.
	ErrUnsupportedLineProgramVersion = errors.New("unsupported line program version")

	// ErrInvalidHeader is returned for headers that would make the program
	// undecodable, such as a zero line_range.
	ErrInvalidHeader = errors.New("invalid line program header")
)

// FileEntry is one entry of the file name table.
type FileEntry struct {
	Name     string
	DirIndex uint64
	ModTime  uint64
	Size     uint64
}

// Header is a DWARF 2-4 line program header.
type Header struct {
	// Offset is the .debug_line offset of the unit length field.
	Offset       uint64
	Format       dwarf.Format
	UnitLength   uint64
	Version      uint16
	HeaderLength uint64

	MinInstLength uint8
	// MaxOpsPerInst is 1 for versions before 4.
	MaxOpsPerInst uint8
	DefaultIsStmt bool
	LineBase      int8
	LineRange     uint8
	OpcodeBase    uint8
	// StandardOpcodeLengths holds the operand count of opcodes 1..OpcodeBase-1.
	StandardOpcodeLengths []uint64

	IncludeDirs []string
	Files       []FileEntry

	// ProgramOffset and End bound the opcode stream.
	ProgramOffset uint64
	End           uint64
}

// ParseHeader decodes the line program header at off.
func ParseHeader(r *buffer.Reader, off uint64) (*Header, error) {
	wrap := func(err error) error {
		return &dwarf.DecodeError{Section: ".debug_line", Offset: off, Err: err}
	}

	format, length, err := dwarf.DetectFormat(r, off)
	if err != nil {
		return nil, wrap(err)
	}
	h := &Header{Offset: off, Format: format, UnitLength: length, MaxOpsPerInst: 1}
	h.End = off + format.LengthFieldSize() + length
	if h.End < off || h.End > r.Len() {
		return nil, wrap(fmt.Errorf("%w: length 0x%x", dwarf.ErrUnitLength, length))
	}

	c := buffer.NewCursor(r, off+format.LengthFieldSize())
	h.Version = c.U16()
	if err := c.Err(); err != nil {
		return nil, wrap(err)
	}
	if h.Version < 2 || h.Version > 4 {
		return nil, wrap(fmt.Errorf("%w: %d", ErrUnsupportedLineProgramVersion, h.Version))
	}

	h.HeaderLength = c.Uint(format.OffsetSize())
	h.ProgramOffset = c.Offset() + h.HeaderLength
	h.MinInstLength = c.U8()
	if h.Version >= 4 {
		h.MaxOpsPerInst = c.U8()
	}
	h.DefaultIsStmt = c.U8() != 0
	h.LineBase = int8(c.U8())
	h.LineRange = c.U8()
	h.OpcodeBase = c.U8()
	if err := c.Err(); err != nil {
		return nil, wrap(err)
	}
	if h.LineRange == 0 {
		return nil, wrap(fmt.Errorf("%w: line_range is 0", ErrInvalidHeader))
	}
	if h.OpcodeBase == 0 {
		return nil, wrap(fmt.Errorf("%w: opcode_base is 0", ErrInvalidHeader))
	}
	if h.MaxOpsPerInst == 0 {
		h.MaxOpsPerInst = 1
	}

	h.StandardOpcodeLengths = make([]uint64, h.OpcodeBase-1)
	for i := range h.StandardOpcodeLengths {
		h.StandardOpcodeLengths[i] = c.ULEB128()
	}

	for {
		dir := c.CString()
		if c.Err() != nil || dir == "" {
			break
		}
		h.IncludeDirs = append(h.IncludeDirs, dir)
	}
	for {
		name := c.CString()
		if c.Err() != nil || name == "" {
			break
		}
		h.Files = append(h.Files, FileEntry{
			Name:     name,
			DirIndex: c.ULEB128(),
			ModTime:  c.ULEB128(),
			Size:     c.ULEB128(),
		})
	}
	if err := c.Err(); err != nil {
		return nil, wrap(err)
	}
	if h.ProgramOffset > h.End {
		return nil, wrap(fmt.Errorf("%w: header_length 0x%x runs past the unit", ErrInvalidHeader, h.HeaderLength))
	}
	return h, nil
}

// FilePath joins a file entry with its include directory.
func (h *Header) FilePath(f FileEntry) string {
	if f.DirIndex == 0 || f.DirIndex > uint64(len(h.IncludeDirs)) || len(f.Name) > 0 && f.Name[0] == '/' {
		return f.Name
	}
	return h.IncludeDirs[f.DirIndex-1] + "/" + f.Name
}
