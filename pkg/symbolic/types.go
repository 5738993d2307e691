package symbolic

import (
	"github.com/coral-mesh/dwarfscope/pkg/dwarf"
)

// Kind is the coarse classification of a type entry.
type Kind int

const (
	KindOther Kind = iota
	KindClass
	KindBase
	KindPointer
	KindArray
	KindUnspecified
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindBase:
		return "base"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindUnspecified:
		return "unspecified"
	}
	return "other"
}

// Type is a resolved DW_AT_type target.
type Type struct {
	Kind  Kind
	Name  string
	Entry *dwarf.Entry
}

func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	return t.Name
}

func kindOf(tag dwarf.Tag) Kind {
	switch tag {
	case dwarf.TagClassType, dwarf.TagStructureType, dwarf.TagInterfaceType, dwarf.TagUnionType:
		return KindClass
	case dwarf.TagBaseType, dwarf.TagEnumerationType:
		return KindBase
	case dwarf.TagPointerType, dwarf.TagReferenceType, dwarf.TagRvalueReferenceType:
		return KindPointer
	case dwarf.TagArrayType:
		return KindArray
	case dwarf.TagUnspecifiedType:
		return KindUnspecified
	}
	return KindOther
}

// maxTypeDepth bounds name synthesis through pointer and array chains.
const maxTypeDepth = 8

// TypeOf resolves the DW_AT_type of e. It reports false when e has no type,
// which for subprograms means void.
func (m *Model) TypeOf(e *dwarf.Entry) (*Type, bool) {
	target, ok := m.index.Resolve(e, dwarf.AttrType)
	if !ok {
		return nil, false
	}
	return m.typeFor(target), true
}

func (m *Model) typeFor(e *dwarf.Entry) *Type {
	return &Type{Kind: kindOf(e.Tag), Name: m.typeName(e, 0), Entry: e}
}

// typeName prefers DW_AT_name and otherwise spells pointer, array and
// qualifier types from their element type.
func (m *Model) typeName(e *dwarf.Entry, depth int) string {
	if name := m.data.Name(e); name != "" {
		return name
	}
	if depth >= maxTypeDepth {
		return "<...>"
	}
	elem := "void"
	if target, ok := m.index.Resolve(e, dwarf.AttrType); ok {
		elem = m.typeName(target, depth+1)
	}
	switch e.Tag {
	case dwarf.TagPointerType:
		return "*" + elem
	case dwarf.TagReferenceType:
		return "&" + elem
	case dwarf.TagArrayType:
		return elem + "[]"
	case dwarf.TagConstType:
		return "const " + elem
	case dwarf.TagVolatileType:
		return "volatile " + elem
	case dwarf.TagUnspecifiedType:
		return "<unspecified>"
	}
	return "<" + e.Tag.String() + ">"
}
