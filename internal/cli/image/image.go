// Package image implements the commands that read ELF structure: section
// headers, symbol and string tables, build metadata and the image identity.
package image

import (
	"github.com/spf13/cobra"
)

// Commands returns every image command.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		NewSectionsCmd(),
		NewSymbolsCmd(),
		NewStringsCmd(),
		NewMetadataCmd(),
		NewBuildIDCmd(),
	}
}
