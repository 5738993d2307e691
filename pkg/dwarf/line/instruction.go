package line

import (
	"fmt"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
	"github.com/coral-mesh/dwarfscope/pkg/dwarf"
)

// Standard opcodes.
const (
	OpCopy             uint8 = 0x01
	OpAdvancePC        uint8 = 0x02
	OpAdvanceLine      uint8 = 0x03
	OpSetFile          uint8 = 0x04
	OpSetColumn        uint8 = 0x05
	OpNegateStmt       uint8 = 0x06
	OpSetBasicBlock    uint8 = 0x07
	OpConstAddPC       uint8 = 0x08
	OpFixedAdvancePC   uint8 = 0x09
	OpSetPrologueEnd   uint8 = 0x0a
	OpSetEpilogueBegin uint8 = 0x0b
	OpSetISA           uint8 = 0x0c
)

// Extended opcodes, introduced by a zero byte.
const (
	ExtEndSequence      uint8 = 0x01
	ExtSetAddress       uint8 = 0x02
	ExtDefineFile       uint8 = 0x03
	ExtSetDiscriminator uint8 = 0x04
)

// Kind classifies a decoded instruction.
type Kind uint8

const (
	KindSpecial Kind = iota
	KindStandard
	KindExtended
)

// Instruction is one decoded opcode with its operands.
type Instruction struct {
	// Offset is the .debug_line offset of the opcode byte.
	Offset uint64
	// Width is the encoded size including operands.
	Width uint64
	Kind  Kind
	// Opcode is the opcode byte; for extended instructions it is the
	// sub-opcode that follows the length.
	Opcode uint8

	// Operand holds the unsigned operand of advance_pc, set_file, set_column,
	// set_isa, fixed_advance_pc, set_address and set_discriminator.
	Operand uint64
	// Delta holds the signed operand of advance_line.
	Delta int64
	// File holds the entry added by define_file.
	File FileEntry
	// Skipped is set for opcodes whose operands were passed over unread:
	// unknown standard and extended opcodes, and set_address with an
	// unexpected length.
	Skipped bool
}

func (i Instruction) String() string {
	switch i.Kind {
	case KindSpecial:
		return fmt.Sprintf("special(%d)", i.Opcode)
	case KindExtended:
		return fmt.Sprintf("extended(0x%x) %d", i.Opcode, i.Operand)
	}
	return fmt.Sprintf("standard(0x%x) %d", i.Opcode, i.Operand)
}

// Decode reads the instruction at off.
func Decode(r *buffer.Reader, off uint64, h *Header) (Instruction, error) {
	c := buffer.NewCursor(r, off)
	ins := Instruction{Offset: off}

	op := c.U8()
	switch {
	case c.Err() != nil:
	case op >= h.OpcodeBase:
		ins.Kind = KindSpecial
		ins.Opcode = op
	case op == 0:
		ins.Kind = KindExtended
		length := c.ULEB128()
		if c.Err() != nil || length == 0 {
			break
		}
		body := c.Offset()
		ins.Opcode = c.U8()
		switch ins.Opcode {
		case ExtEndSequence:
		case ExtSetAddress:
			switch length {
			case 9:
				ins.Operand = c.U64()
			case 5:
				ins.Operand = uint64(c.U32())
			default:
				ins.Skipped = true
			}
		case ExtSetDiscriminator:
			ins.Operand = c.ULEB128()
		case ExtDefineFile:
			ins.File = FileEntry{Name: c.CString(), DirIndex: c.ULEB128(), ModTime: c.ULEB128(), Size: c.ULEB128()}
		default:
			ins.Skipped = true
		}
		// The length is authoritative for every extended opcode.
		c.Seek(body)
		c.Skip(length)
	default:
		ins.Kind = KindStandard
		ins.Opcode = op
		switch op {
		case OpAdvancePC, OpSetFile, OpSetColumn, OpSetISA:
			ins.Operand = c.ULEB128()
		case OpAdvanceLine:
			ins.Delta = c.SLEB128()
		case OpFixedAdvancePC:
			ins.Operand = uint64(c.U16())
		case OpCopy, OpNegateStmt, OpSetBasicBlock, OpConstAddPC, OpSetPrologueEnd, OpSetEpilogueBegin:
		default:
			ins.Skipped = true
			for n := h.StandardOpcodeLengths[op-1]; n > 0 && c.Err() == nil; n-- {
				c.ULEB128()
			}
		}
	}

	if err := c.Err(); err != nil {
		return Instruction{}, &dwarf.DecodeError{Section: ".debug_line", Offset: off, Err: err}
	}
	ins.Width = c.Offset() - off
	return ins, nil
}
