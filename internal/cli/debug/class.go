package debug

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
	"github.com/coral-mesh/dwarfscope/pkg/symbolic"
)

// Member kinds in `class` output.
const (
	MemberSuper  = "super"
	MemberField  = "field"
	MemberMethod = "method"
)

// MemberRow is one member of a class.
type MemberRow struct {
	Kind   string `header:"KIND" json:"kind"`
	Name   string `header:"NAME" json:"name"`
	Type   string `header:"TYPE" json:"type"`
	Detail string `header:"DETAIL" json:"detail,omitempty"`
}

// NewClassCmd shows the layout of a class type.
func NewClassCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "class <binary> <name>",
		Short:   "Show a class with its base class, fields and methods",
		Example: `  dwarfscope class ./app java.lang.String`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.WithSession(cmd, args[0], func(s *inspect.Session) error {
				m, err := s.Model()
				if err != nil {
					return err
				}
				c, ok := m.FindClass(args[1])
				if !ok {
					return fmt.Errorf("class %q not found", args[1])
				}
				return helpers.Render(cmd, classMembers(c))
			})
		},
	}
}

func classMembers(c *symbolic.Class) []MemberRow {
	var rows []MemberRow
	if super, ok := c.SuperType(); ok {
		rows = append(rows, MemberRow{Kind: MemberSuper, Name: super.Name, Type: super.Name})
	}
	for _, f := range c.Fields() {
		row := MemberRow{Kind: MemberField, Name: f.Name, Type: f.Type.String()}
		if f.HasOffset {
			row.Detail = fmt.Sprintf("offset %d", f.Offset)
		}
		rows = append(rows, row)
	}
	for _, meth := range c.Methods() {
		var params []string
		for _, p := range meth.Parameters {
			if p.Artificial {
				continue
			}
			params = append(params, p.Type.String())
		}
		rows = append(rows, MemberRow{
			Kind:   MemberMethod,
			Name:   meth.Name,
			Type:   meth.ReturnType.String(),
			Detail: "(" + strings.Join(params, ", ") + ")",
		})
	}
	return rows
}
