package image

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
	"github.com/coral-mesh/dwarfscope/pkg/elf"
)

// SymbolRow is one line of `symbols` output.
type SymbolRow struct {
	Value      uint64 `header:"VALUE" format:"hex" json:"value"`
	Size       uint64 `header:"SIZE" json:"size"`
	Type       string `header:"TYPE" json:"type"`
	Bind       string `header:"BIND" json:"bind"`
	Visibility string `header:"VIS" json:"visibility"`
	Section    uint16 `header:"NDX" json:"section_index"`
	Name       string `header:"NAME" json:"name"`
}

// NewSymbolsCmd dumps .symtab, or .dynsym when the image has no .symtab.
func NewSymbolsCmd() *cobra.Command {
	var (
		funcsOnly bool
		filter    string
	)

	cmd := &cobra.Command{
		Use:   "symbols <binary>",
		Short: "Dump the ELF symbol table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.WithSession(cmd, args[0], func(s *inspect.Session) error {
				syms, err := s.Symbols()
				if err != nil {
					return err
				}
				rows := make([]SymbolRow, 0, len(syms))
				for _, sym := range syms {
					if funcsOnly && sym.Type != elf.SymbolTypeFunc {
						continue
					}
					if filter != "" && !strings.Contains(sym.Name, filter) {
						continue
					}
					rows = append(rows, SymbolRow{
						Value:      sym.Value,
						Size:       sym.Size,
						Type:       sym.Type.String(),
						Bind:       sym.Bind.String(),
						Visibility: sym.Visibility.String(),
						Section:    sym.SectionIndex,
						Name:       sym.Name,
					})
				}
				return helpers.Render(cmd, rows)
			})
		},
	}

	cmd.Flags().BoolVar(&funcsOnly, "functions", false, "Only list FUNC symbols")
	cmd.Flags().StringVar(&filter, "filter", "", "Only list symbols whose name contains this text")
	return cmd
}
