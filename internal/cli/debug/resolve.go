package debug

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/config"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
	"github.com/coral-mesh/dwarfscope/internal/symbolizer"
)

// SymbolRow is one resolved address.
type SymbolRow struct {
	Address     uint64 `header:"ADDRESS" format:"hex" json:"address"`
	FileAddress uint64 `header:"FILE_ADDR" format:"hex" json:"file_address"`
	Symbol      string `header:"SYMBOL" json:"-"`
	Function    string `json:"function,omitempty"`
	Package     string `json:"package,omitempty"`
	Offset      uint64 `json:"offset"`
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Source      string `header:"SOURCE" json:"source,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewResolveCmd maps code addresses to functions and source positions.
func NewResolveCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "resolve <binary> <address>...",
		Short: "Resolve code addresses to function, file and line",
		Long: `Resolve code addresses using DWARF subprogram ranges and line tables,
falling back to the ELF symbol table.

Addresses taken from a running process are translated to image addresses
with --load-address (where the executable mapping starts) and, for images
whose text does not start at the first executable segment, --base-address.`,
		Example: `  dwarfscope resolve ./app 0x401020
  dwarfscope resolve ./app --load-address 0x7f3a00001000 0x7f3a00001020`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs := make([]uint64, 0, len(args)-1)
			for _, a := range args[1:] {
				addr, err := helpers.ParseAddress(a)
				if err != nil {
					return err
				}
				addrs = append(addrs, addr)
			}

			env := helpers.EnvFrom(cmd)
			return helpers.WithSession(cmd, args[0], func(s *inspect.Session) error {
				sym, err := symbolizer.New(s, env.Config.Symbolizer, env.Logger)
				if err != nil {
					return err
				}
				results, err := sym.ResolveAll(cmd.Context(), addrs, workers)
				if err != nil {
					return err
				}

				rows := make([]SymbolRow, len(results))
				unresolved := 0
				for i, r := range results {
					rows[i] = symbolRow(addrs[i], sym.Translate(addrs[i]), r)
					if r.Err != nil {
						unresolved++
						if !errors.Is(r.Err, symbolizer.ErrNotFound) {
							env.Logger.Warn().Err(r.Err).Uint64("address", addrs[i]).Msg("Failed to resolve address")
						}
					}
				}
				if err := helpers.Render(cmd, rows); err != nil {
					return err
				}
				if unresolved == len(rows) {
					return fmt.Errorf("none of %d addresses resolved", len(rows))
				}
				return nil
			})
		},
	}

	cmd.Flags().Uint64(config.FlagLoadAddr, 0, "Runtime load address of the executable mapping")
	cmd.Flags().Uint64(config.FlagBaseAddr, 0, "Link-time base address (default: first executable PT_LOAD)")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent lookups")
	return cmd
}

func symbolRow(addr, fileAddr uint64, r symbolizer.Result) SymbolRow {
	row := SymbolRow{Address: addr, FileAddress: fileAddr}
	if r.Err != nil {
		row.Symbol = "??"
		row.Error = r.Err.Error()
		return row
	}
	s := r.Symbol
	row.Symbol = symbolizer.FormatSymbol(s)
	row.Function = s.FunctionName
	row.Package = s.Package
	row.Offset = s.Offset
	row.File = s.FileName
	row.Line = s.Line
	row.Source = string(s.Source)
	return row
}
