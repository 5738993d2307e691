package image

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
)

// SectionRow is one line of `sections` output.
type SectionRow struct {
	Index  int    `header:"IDX" json:"index"`
	Name   string `header:"NAME" json:"name"`
	Type   string `header:"TYPE" json:"type"`
	Addr   uint64 `header:"ADDR" format:"hex" json:"addr"`
	Offset uint64 `header:"OFFSET" format:"hex" json:"offset"`
	Size   uint64 `header:"SIZE" format:"hex" json:"size"`
}

// NewSectionsCmd lists the section header table.
func NewSectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections <binary>",
		Short: "List ELF section headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.WithSession(cmd, args[0], func(s *inspect.Session) error {
				var rows []SectionRow
				for sec, err := range s.File.Sections() {
					if err != nil {
						return err
					}
					rows = append(rows, SectionRow{
						Index:  sec.Index,
						Name:   sec.Name,
						Type:   sec.Type.String(),
						Addr:   sec.Addr,
						Offset: sec.Offset,
						Size:   sec.Size,
					})
				}
				return helpers.Render(cmd, rows)
			})
		},
	}
}
