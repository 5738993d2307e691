package helpers

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfscope/internal/config"
	errs "github.com/coral-mesh/dwarfscope/internal/errors"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
	"github.com/coral-mesh/dwarfscope/internal/logging"
)

// Env is the per-invocation state the root command prepares for subcommands.
type Env struct {
	Config *config.Config
	Logger zerolog.Logger
}

type envKey struct{}

// WithEnv attaches env to ctx.
func WithEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFrom returns the Env attached to the command's context, or defaults with
// a disabled logger when there is none.
func EnvFrom(cmd *cobra.Command) *Env {
	if ctx := cmd.Context(); ctx != nil {
		if env, ok := ctx.Value(envKey{}).(*Env); ok {
			return env
		}
	}
	return &Env{Config: config.DefaultConfig(), Logger: zerolog.Nop()}
}

// NewLogger builds the diagnostic logger for cfg writing to w.
func NewLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	pretty := false
	switch cfg.Style {
	case config.LogStyleConsole:
		pretty = true
	case config.LogStyleAuto:
		pretty = logging.IsTerminal(w)
	}
	return logging.New(logging.Config{
		Level:  cfg.Level,
		Pretty: pretty,
		Output: w,
	})
}

// OpenSession opens the image at path with the command's configuration.
func OpenSession(cmd *cobra.Command, path string) (*inspect.Session, error) {
	env := EnvFrom(cmd)
	s, err := inspect.Open(path, env.Config, env.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return s, nil
}

// Render writes rows to the command's output in the configured format.
func Render(cmd *cobra.Command, rows interface{}) error {
	out := EnvFrom(cmd).Config.Output
	f, err := NewFormatter(OutputFormat(out.Format), out.NoColor)
	if err != nil {
		return err
	}
	return f.Format(rows, cmd.OutOrStdout())
}

// WithSession opens path, runs fn and closes the session.
func WithSession(cmd *cobra.Command, path string, fn func(*inspect.Session) error) (err error) {
	s, err := OpenSession(cmd, path)
	if err != nil {
		return err
	}
	defer errs.CloseInto(&err, s, path)
	return fn(s)
}
