package debug

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
	"github.com/coral-mesh/dwarfscope/pkg/dwarf"
)

// AttrRow is one attribute of a DIE in JSON output.
type AttrRow struct {
	Name  string `json:"name"`
	Form  string `json:"form"`
	Value string `json:"value"`
}

// DIERow is one entry of `dies` output.
type DIERow struct {
	Offset     uint64    `header:"OFFSET" format:"hex" json:"offset"`
	Tree       string    `header:"TAG" json:"-"`
	Tag        string    `json:"tag"`
	Depth      int       `json:"depth"`
	Name       string    `header:"NAME" json:"name,omitempty"`
	Summary    string    `header:"ATTRIBUTES" json:"-"`
	Attributes []AttrRow `json:"attributes"`
}

// NewDIEsCmd dumps the DIE tree depth first.
func NewDIEsCmd() *cobra.Command {
	var (
		depth  int
		offset string
	)

	cmd := &cobra.Command{
		Use:   "dies <binary>",
		Short: "Dump debugging information entries",
		Example: `  dwarfscope dies ./app --depth 1
  dwarfscope dies ./app --offset 0x2d`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.WithSession(cmd, args[0], func(s *inspect.Session) error {
				data, err := s.Data()
				if err != nil {
					return err
				}
				idx, err := s.Index()
				if err != nil {
					return err
				}

				var roots []*dwarf.Entry
				if offset != "" {
					off, err := helpers.ParseAddress(offset)
					if err != nil {
						return err
					}
					e, ok := idx.Lookup(off)
					if !ok {
						return fmt.Errorf("no entry at offset 0x%x", off)
					}
					roots = []*dwarf.Entry{e}
				}

				var rows []DIERow
				visit := func(e *dwarf.Entry, d int) bool {
					rows = append(rows, dieRow(data, e, d))
					return depth < 0 || d < depth
				}
				if roots == nil {
					idx.Walk(visit)
				} else {
					walk(roots, 0, visit)
				}
				return helpers.Render(cmd, rows)
			})
		},
	}

	cmd.Flags().IntVar(&depth, "depth", -1, "Maximum depth to descend, 0 for top-level entries only; negative means unlimited")
	cmd.Flags().StringVar(&offset, "offset", "", "Start at the entry at this .debug_info offset")
	return cmd
}

func walk(entries []*dwarf.Entry, depth int, fn func(*dwarf.Entry, int) bool) {
	for _, e := range entries {
		if fn(e, depth) {
			walk(e.Children, depth+1, fn)
		}
	}
}

func dieRow(data *dwarf.Data, e *dwarf.Entry, depth int) DIERow {
	row := DIERow{
		Offset: e.Offset,
		Tree:   strings.Repeat("  ", depth) + e.Tag.String(),
		Tag:    e.Tag.String(),
		Depth:  depth,
		Name:   data.Name(e),
	}
	parts := make([]string, 0, len(e.Attrs))
	for _, v := range e.Attrs {
		h := v.Header()
		if h.Attr == dwarf.AttrName {
			continue
		}
		value := attrValue(data, v)
		row.Attributes = append(row.Attributes, AttrRow{Name: h.Attr.String(), Form: h.Form.String(), Value: value})
		parts = append(parts, strings.TrimPrefix(h.Attr.String(), "DW_AT_")+"="+value)
	}
	row.Summary = strings.Join(parts, " ")
	return row
}

// attrValue renders v, following .debug_str references.
func attrValue(data *dwarf.Data, v dwarf.Value) string {
	if off, ok := v.(dwarf.OffsetValue); ok && off.Form == dwarf.FormStrp {
		if s, err := data.String(off.Off); err == nil {
			return fmt.Sprintf("%q", s)
		}
	}
	return v.String()
}
