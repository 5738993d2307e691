package symbolic

import (
	"github.com/coral-mesh/dwarfscope/pkg/dwarf"
)

// Class is a class or structure type declaration.
type Class struct {
	Name  string
	Entry *dwarf.Entry
	model *Model
}

// Field is a data member of a class.
type Field struct {
	Name  string
	Type  *Type
	Entry *dwarf.Entry
	// Offset is DW_AT_data_member_location when it is a constant.
	Offset    uint64
	HasOffset bool
}

// Parameter is a formal parameter of a method.
type Parameter struct {
	Name       string
	Type       *Type
	Artificial bool
}

// Method is a member function of a class. A nil ReturnType means void.
type Method struct {
	Name        string
	LinkageName string
	ReturnType  *Type
	Parameters  []Parameter
	Entry       *dwarf.Entry
}

func isClassTag(tag dwarf.Tag) bool {
	return tag == dwarf.TagClassType || tag == dwarf.TagStructureType
}

// FindClass returns the first class or structure type named name.
// Declarations without a body are only returned when no definition exists.
func (m *Model) FindClass(name string) (*Class, bool) {
	var decl *dwarf.Entry
	for e := range m.tree.All() {
		if !isClassTag(e.Tag) || m.data.Name(e) != name {
			continue
		}
		if !e.Flag(dwarf.AttrDeclaration) {
			return m.class(e), true
		}
		if decl == nil {
			decl = e
		}
	}
	if decl != nil {
		return m.class(decl), true
	}
	return nil, false
}

// Classes returns every named class or structure definition.
func (m *Model) Classes() []*Class {
	var out []*Class
	for e := range m.tree.All() {
		if isClassTag(e.Tag) && !e.Flag(dwarf.AttrDeclaration) && m.data.Name(e) != "" {
			out = append(out, m.class(e))
		}
	}
	return out
}

func (m *Model) class(e *dwarf.Entry) *Class {
	return &Class{Name: m.data.Name(e), Entry: e, model: m}
}

// SuperType follows the first DW_TAG_inheritance child to the base class.
func (c *Class) SuperType() (*Class, bool) {
	for _, child := range c.Entry.Children {
		if child.Tag != dwarf.TagInheritance {
			continue
		}
		base, ok := c.model.index.Resolve(child, dwarf.AttrType)
		if !ok || !isClassTag(base.Tag) {
			return nil, false
		}
		return c.model.class(base), true
	}
	return nil, false
}

// Fields returns the DW_TAG_member children in declaration order.
func (c *Class) Fields() []Field {
	var out []Field
	for _, child := range c.Entry.Children {
		if child.Tag != dwarf.TagMember {
			continue
		}
		f := Field{Name: c.model.data.Name(child), Entry: child}
		f.Type, _ = c.model.TypeOf(child)
		if v := child.Val(dwarf.AttrDataMemberLocation); v != nil {
			f.Offset, f.HasOffset = dwarf.AsUint(v)
		}
		out = append(out, f)
	}
	return out
}

// Methods returns the DW_TAG_subprogram children in declaration order.
func (c *Class) Methods() []Method {
	var out []Method
	for _, child := range c.Entry.Children {
		if child.Tag != dwarf.TagSubprogram {
			continue
		}
		out = append(out, c.model.method(child))
	}
	return out
}

func (m *Model) method(e *dwarf.Entry) Method {
	meth := Method{Name: m.Name(e), LinkageName: m.LinkageName(e), Entry: e}
	meth.ReturnType, _ = m.TypeOf(e)
	for _, child := range e.Children {
		if child.Tag != dwarf.TagFormalParameter {
			continue
		}
		p := Parameter{Name: m.data.Name(child), Artificial: child.Flag(dwarf.AttrArtificial)}
		p.Type, _ = m.TypeOf(child)
		meth.Parameters = append(meth.Parameters, p)
	}
	return meth
}
