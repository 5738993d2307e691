// Package debug provides CLI commands that read DWARF debug information.
//
// The commands decode .debug_info and .debug_line of a native image and
// answer the questions a debugger front end asks: which entries exist, which
// addresses belong to a source file, how a class is laid out, which functions
// match a name and where an address came from.
//
// Main commands include:
//   - dies: Dump the debugging information entry tree
//   - lines: List line table rows for a source file or a line program
//   - class: Show the fields, methods and base class of a class type
//   - functions: List functions with code ranges
//   - resolve: Map code addresses to function, file and line
package debug

import "github.com/spf13/cobra"

// Commands returns every debug info command.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		NewDIEsCmd(),
		NewLinesCmd(),
		NewClassCmd(),
		NewFunctionsCmd(),
		NewResolveCmd(),
	}
}
