package image

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
	"github.com/coral-mesh/dwarfscope/pkg/elf"
)

// MetadataRow is one entry of a build metadata section.
type MetadataRow struct {
	Section string `header:"SECTION" json:"section"`
	Entry   string `header:"ENTRY" json:"entry"`
}

// NewMetadataCmd dumps the vendor build metadata sections.
func NewMetadataCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "metadata <binary>",
		Short: "Dump build metadata string sections",
		Long: `Dump every section whose name starts with the metadata prefix as a
string table. The default prefix selects native-image build arguments and
properties; use --prefix or decode.metadata_prefix to pick another family.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := helpers.EnvFrom(cmd)
			if prefix != "" {
				env.Config.Decode.MetadataPrefix = prefix
			}
			return helpers.WithSession(cmd, args[0], func(s *inspect.Session) error {
				sections, err := s.Metadata()
				if err != nil {
					return err
				}
				var rows []MetadataRow
				for _, sec := range sections {
					for _, entry := range sec.Entries {
						rows = append(rows, MetadataRow{Section: sec.Name, Entry: entry})
					}
				}
				if len(rows) == 0 {
					env.Logger.Info().
						Str("prefix", env.Config.Decode.MetadataPrefix).
						Msg("No metadata sections found")
				}
				return helpers.Render(cmd, rows)
			})
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Section name prefix (default "+elf.DefaultMetadataPrefix+")")
	return cmd
}
