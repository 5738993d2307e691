package debug

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
	"github.com/coral-mesh/dwarfscope/pkg/dwarf/line"
)

// LineRow is one row of a line table.
type LineRow struct {
	Address     uint64 `header:"ADDRESS" format:"hex" json:"address"`
	File        string `header:"FILE" json:"file"`
	Line        uint64 `header:"LINE" json:"line"`
	Column      uint64 `header:"COL" json:"column"`
	IsStmt      bool   `header:"STMT" json:"is_stmt"`
	EndSequence bool   `header:"END" json:"end_sequence"`
}

// NewLinesCmd lists line rows by source file name or by line program offset.
func NewLinesCmd() *cobra.Command {
	var offset string

	cmd := &cobra.Command{
		Use:   "lines <binary> [source-file]",
		Short: "List line table rows",
		Long: `List the line table rows of every compilation unit whose name has the
same base name as source-file, or the rows of the single line program at
--offset in .debug_line.`,
		Example: `  dwarfscope lines ./app Main.java
  dwarfscope lines ./app --offset 0`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 2) == (offset != "") {
				return fmt.Errorf("give either a source file or --offset")
			}
			return helpers.WithSession(cmd, args[0], func(s *inspect.Session) error {
				if offset != "" {
					off, err := helpers.ParseAddress(offset)
					if err != nil {
						return err
					}
					table, err := s.LineTable(off)
					if err != nil {
						return err
					}
					return helpers.Render(cmd, lineRows(table.Rows, table.Header))
				}

				rows, err := s.SourceLines(args[1])
				if err != nil && len(rows) == 0 {
					return err
				}
				return helpers.Render(cmd, lineRows(rows, nil))
			})
		},
	}

	cmd.Flags().StringVar(&offset, "offset", "", "Line program offset in .debug_line")
	return cmd
}

// lineRows converts rows for output. With a header, file names are joined
// with their include directory.
func lineRows(rows []line.Row, h *line.Header) []LineRow {
	out := make([]LineRow, len(rows))
	for i, r := range rows {
		name := r.File.Name
		if h != nil {
			name = h.FilePath(r.File)
		}
		out[i] = LineRow{
			Address:     r.Address,
			File:        name,
			Line:        r.Line,
			Column:      r.Column,
			IsStmt:      r.IsStmt,
			EndSequence: r.EndSequence,
		}
	}
	return out
}
