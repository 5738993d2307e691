package line

// State is the line-number register set.
type State struct {
	Address       uint64
	OpIndex       uint64
	File          uint64
	Line          uint64
	Column        uint64
	IsStmt        bool
	BasicBlock    bool
	EndSequence   bool
	PrologueEnd   bool
	EpilogueBegin bool
	ISA           uint64
	Discriminator uint64
}

// Reset puts the registers in their initial state for a header.
func (s *State) Reset(h *Header) {
	*s = State{File: 1, Line: 1, IsStmt: h.DefaultIsStmt}
}

// Row is one committed line table row.
type Row struct {
	Address       uint64
	OpIndex       uint64
	FileIndex     uint64
	File          FileEntry
	Line          uint64
	Column        uint64
	IsStmt        bool
	BasicBlock    bool
	EndSequence   bool
	PrologueEnd   bool
	EpilogueBegin bool
	ISA           uint64
	Discriminator uint64
}

// Machine executes instructions against a State. It owns the file table,
// which define_file instructions extend.
type Machine struct {
	Header *Header
	Files  []FileEntry
	State  State
}

// NewMachine returns a machine in the initial state for h.
func NewMachine(h *Header) *Machine {
	m := &Machine{Header: h, Files: append([]FileEntry(nil), h.Files...)}
	m.State.Reset(h)
	return m
}

// Apply executes one instruction. It returns the committed row and true when
// the instruction is copy, a special opcode or end_sequence.
func (m *Machine) Apply(ins Instruction) (Row, bool) {
	h, s := m.Header, &m.State

	switch ins.Kind {
	case KindSpecial:
		adjusted := uint64(ins.Opcode - h.OpcodeBase)
		m.advance(adjusted / uint64(h.LineRange))
		s.Line = uint64(int64(s.Line) + int64(h.LineBase) + int64(adjusted%uint64(h.LineRange)))
		return m.commit(), true

	case KindExtended:
		switch ins.Opcode {
		case ExtEndSequence:
			s.EndSequence = true
			row := m.commit()
			s.Reset(h)
			return row, true
		case ExtSetAddress:
			if !ins.Skipped {
				s.Address = ins.Operand
				s.OpIndex = 0
			}
		case ExtDefineFile:
			m.Files = append(m.Files, ins.File)
		case ExtSetDiscriminator:
			s.Discriminator = ins.Operand
		}
		return Row{}, false
	}

	switch ins.Opcode {
	case OpCopy:
		return m.commit(), true
	case OpAdvancePC:
		m.advance(ins.Operand)
	case OpAdvanceLine:
		s.Line = uint64(int64(s.Line) + ins.Delta)
	case OpSetFile:
		s.File = ins.Operand
	case OpSetColumn:
		s.Column = ins.Operand
	case OpNegateStmt:
		s.IsStmt = !s.IsStmt
	case OpSetBasicBlock:
		s.BasicBlock = true
	case OpConstAddPC:
		m.advance(uint64(255-h.OpcodeBase) / uint64(h.LineRange))
	case OpFixedAdvancePC:
		s.Address += ins.Operand
		s.OpIndex = 0
	case OpSetPrologueEnd:
		s.PrologueEnd = true
	case OpSetEpilogueBegin:
		s.EpilogueBegin = true
	case OpSetISA:
		s.ISA = ins.Operand
	}
	return Row{}, false
}

// advance applies an operation advance. With one operation per instruction
// this is a plain min_inst_length scaled address increment.
func (m *Machine) advance(n uint64) {
	h, s := m.Header, &m.State
	ops := uint64(h.MaxOpsPerInst)
	if ops <= 1 {
		s.Address += uint64(h.MinInstLength) * n
		return
	}
	s.Address += uint64(h.MinInstLength) * ((s.OpIndex + n) / ops)
	s.OpIndex = (s.OpIndex + n) % ops
}

// commit snapshots the registers and clears the per-row flags.
func (m *Machine) commit() Row {
	s := &m.State
	row := Row{
		Address:       s.Address,
		OpIndex:       s.OpIndex,
		FileIndex:     s.File,
		Line:          s.Line,
		Column:        s.Column,
		IsStmt:        s.IsStmt,
		BasicBlock:    s.BasicBlock,
		EndSequence:   s.EndSequence,
		PrologueEnd:   s.PrologueEnd,
		EpilogueBegin: s.EpilogueBegin,
		ISA:           s.ISA,
		Discriminator: s.Discriminator,
	}
	if s.File >= 1 && s.File <= uint64(len(m.Files)) {
		row.File = m.Files[s.File-1]
	}
	s.BasicBlock = false
	s.PrologueEnd = false
	s.EpilogueBegin = false
	s.Discriminator = 0
	return row
}
