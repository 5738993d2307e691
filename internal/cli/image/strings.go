package image

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
)

// StringRow is one line of `strings` output.
type StringRow struct {
	Index int    `header:"#" json:"index"`
	Value string `header:"STRING" json:"value"`
}

// NewStringsCmd dumps one section as a string table.
func NewStringsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strings <binary> <section>",
		Short: "Dump a section as NUL-separated strings",
		Example: `  dwarfscope strings ./app .strtab
  dwarfscope strings ./app .debug_str --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.WithSession(cmd, args[0], func(s *inspect.Session) error {
				values, err := s.Strings(args[1])
				if err != nil {
					return err
				}
				rows := make([]StringRow, len(values))
				for i, v := range values {
					rows[i] = StringRow{Index: i, Value: v}
				}
				return helpers.Render(cmd, rows)
			})
		},
	}
}
