package elf

import "fmt"

// Class is the ELF file class (EI_CLASS).
type Class uint8

const (
	ClassNone Class = 0
	Class32   Class = 1
	Class64   Class = 2
)

func (c Class) String() string {
	switch c {
	case Class32:
		return "ELF32"
	case Class64:
		return "ELF64"
	default:
		return fmt.Sprintf("ELFCLASS(%d)", uint8(c))
	}
}

// SectionType is the sh_type field of a section header.
type SectionType uint32

const (
	SectionTypeNull     SectionType = 0
	SectionTypeProgBits SectionType = 1
	SectionTypeSymTab   SectionType = 2
	SectionTypeStrTab   SectionType = 3
	SectionTypeRela     SectionType = 4
	SectionTypeHash     SectionType = 5
	SectionTypeDynamic  SectionType = 6
	SectionTypeNote     SectionType = 7
	SectionTypeNoBits   SectionType = 8
	SectionTypeRel      SectionType = 9
	SectionTypeShLib    SectionType = 10
	SectionTypeDynSym   SectionType = 11
	SectionTypeLoProc   SectionType = 0x70000000
	SectionTypeHiProc   SectionType = 0x7fffffff
	SectionTypeLoUser   SectionType = 0x80000000
	SectionTypeHiUser   SectionType = 0x8fffffff
)

var sectionTypeNames = map[SectionType]string{
	SectionTypeNull:     "NULL",
	SectionTypeProgBits: "PROGBITS",
	SectionTypeSymTab:   "SYMTAB",
	SectionTypeStrTab:   "STRTAB",
	SectionTypeRela:     "RELA",
	SectionTypeHash:     "HASH",
	SectionTypeDynamic:  "DYNAMIC",
	SectionTypeNote:     "NOTE",
	SectionTypeNoBits:   "NOBITS",
	SectionTypeRel:      "REL",
	SectionTypeShLib:    "SHLIB",
	SectionTypeDynSym:   "DYNSYM",
}

func (t SectionType) String() string {
	if name, ok := sectionTypeNames[t]; ok {
		return name
	}
	switch {
	case t >= SectionTypeLoProc && t <= SectionTypeHiProc:
		return fmt.Sprintf("LOPROC+0x%x", uint32(t-SectionTypeLoProc))
	case t >= SectionTypeLoUser && t <= SectionTypeHiUser:
		return fmt.Sprintf("LOUSER+0x%x", uint32(t-SectionTypeLoUser))
	}
	return fmt.Sprintf("0x%x", uint32(t))
}

// SymbolType is the low nibble of st_info.
type SymbolType uint8

const (
	SymbolTypeNoType  SymbolType = 0
	SymbolTypeObject  SymbolType = 1
	SymbolTypeFunc    SymbolType = 2
	SymbolTypeSection SymbolType = 3
	SymbolTypeFile    SymbolType = 4
	SymbolTypeCommon  SymbolType = 5
	SymbolTypeTLS     SymbolType = 6
)

func (t SymbolType) String() string {
	switch t {
	case SymbolTypeNoType:
		return "NOTYPE"
	case SymbolTypeObject:
		return "OBJECT"
	case SymbolTypeFunc:
		return "FUNC"
	case SymbolTypeSection:
		return "SECTION"
	case SymbolTypeFile:
		return "FILE"
	case SymbolTypeCommon:
		return "COMMON"
	case SymbolTypeTLS:
		return "TLS"
	}
	return fmt.Sprintf("STT(%d)", uint8(t))
}

// SymbolBind is the high nibble of st_info.
type SymbolBind uint8

const (
	SymbolBindLocal  SymbolBind = 0
	SymbolBindGlobal SymbolBind = 1
	SymbolBindWeak   SymbolBind = 2
)

func (b SymbolBind) String() string {
	switch b {
	case SymbolBindLocal:
		return "LOCAL"
	case SymbolBindGlobal:
		return "GLOBAL"
	case SymbolBindWeak:
		return "WEAK"
	}
	return fmt.Sprintf("STB(%d)", uint8(b))
}

// SymbolVisibility is the low two bits of st_other.
type SymbolVisibility uint8

const (
	SymbolVisibilityDefault   SymbolVisibility = 0
	SymbolVisibilityInternal  SymbolVisibility = 1
	SymbolVisibilityHidden    SymbolVisibility = 2
	SymbolVisibilityProtected SymbolVisibility = 3
)

func (v SymbolVisibility) String() string {
	switch v {
	case SymbolVisibilityDefault:
		return "DEFAULT"
	case SymbolVisibilityInternal:
		return "INTERNAL"
	case SymbolVisibilityHidden:
		return "HIDDEN"
	case SymbolVisibilityProtected:
		return "PROTECTED"
	}
	return fmt.Sprintf("STV(%d)", uint8(v))
}
