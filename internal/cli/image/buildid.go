package image

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
)

// IdentityRow describes how an image is identified.
type IdentityRow struct {
	Kind string `header:"KIND" json:"kind"`
	ID   string `header:"ID" json:"id"`
}

// NewBuildIDCmd prints the GNU build-id, or a content fingerprint for images
// built without one.
func NewBuildIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buildid <binary>",
		Short: "Print the image build-id or content fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.WithSession(cmd, args[0], func(s *inspect.Session) error {
				id, err := s.Identity()
				if err != nil {
					return err
				}
				row := IdentityRow{Kind: "build-id", ID: id}
				if fp, ok := strings.CutPrefix(id, "xxh3:"); ok {
					row = IdentityRow{Kind: "xxh3", ID: fp}
				}
				return helpers.Render(cmd, []IdentityRow{row})
			})
		},
	}
}
