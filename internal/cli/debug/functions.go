package debug

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
)

// FunctionRow is one function with a code range.
type FunctionRow struct {
	LowPC       uint64 `header:"LOW" format:"hex" json:"low_pc"`
	HighPC      uint64 `header:"HIGH" format:"hex" json:"high_pc"`
	Name        string `header:"NAME" json:"name"`
	LinkageName string `header:"LINKAGE" json:"linkage_name,omitempty"`
}

// NewFunctionsCmd lists functions, optionally filtered by a name pattern.
func NewFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions <binary> [pattern]",
		Short: "List functions with code ranges",
		Long: `List every function that has a code range, ordered by address.

The optional pattern is an exact name, a prefix ending in "*", or a package
pattern such as "com.example/*".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 2 {
				pattern = args[1]
			}
			return helpers.WithSession(cmd, args[0], func(s *inspect.Session) error {
				m, err := s.Model()
				if err != nil {
					return err
				}
				fns := m.FindFunctions(pattern)
				rows := make([]FunctionRow, len(fns))
				for i, f := range fns {
					rows[i] = FunctionRow{LowPC: f.LowPC, HighPC: f.HighPC, Name: f.Name, LinkageName: f.LinkageName}
				}
				return helpers.Render(cmd, rows)
			})
		},
	}
}
