// Package cli wires the dwarfscope command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/cli/debug"
	"github.com/coral-mesh/dwarfscope/internal/cli/helpers"
	"github.com/coral-mesh/dwarfscope/internal/cli/image"
	"github.com/coral-mesh/dwarfscope/internal/config"
	"github.com/coral-mesh/dwarfscope/pkg/version"
)

// NewRootCmd builds the dwarfscope command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "dwarfscope",
		Short: "dwarfscope - inspect ELF images and their DWARF debug info",
		Long: `Read the ELF catalog and DWARF debug information of native images
without running them.

Section, symbol and string tables come from the ELF layer; entries, classes,
functions and line tables come from .debug_info, .debug_abbrev, .debug_str
and .debug_line. Results go to stdout as text, JSON or CSV; diagnostics go
to stderr.

Configuration is layered: defaults, then the YAML config file, then
DWARFSCOPE_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			cfg, err := config.NewLayeredLoader().Load(path, cmd.Flags())
			if err != nil {
				return err
			}

			logger := helpers.NewLogger(cfg.Log, cmd.ErrOrStderr())
			logger.Debug().Str("config", path).Str("format", cfg.Output.Format).Msg("Configuration loaded")
			cmd.SetContext(helpers.WithEnv(cmd.Context(), &helpers.Env{Config: cfg, Logger: logger}))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default $"+config.ConfigEnv+" or <user config dir>/dwarfscope/config.yaml)")
	flags.String(config.FlagLogLevel, "warn", "Log level: trace, debug, info, warn, error")
	flags.String(config.FlagFormat, config.FormatText, "Output format: text, json or csv")
	flags.Bool(config.FlagNoColor, false, "Disable styled text output")

	cmd.AddCommand(image.Commands()...)
	cmd.AddCommand(debug.Commands()...)
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "dwarfscope version %s\n", info.Version)
			_, _ = fmt.Fprintf(out, "Git commit: %s\n", info.GitCommit)
			_, _ = fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
			_, _ = fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
