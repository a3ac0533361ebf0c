package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shardwallet/shardwallet/internal/config"
	"github.com/shardwallet/shardwallet/internal/discovery"
	"github.com/shardwallet/shardwallet/internal/output"
)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Config *config.Config
	Logger *config.Logger
	Fmt    *output.Formatter
	Stderr io.Writer

	// NewOracle builds the activity oracle for discovery. Tests replace it.
	NewOracle func(cfg *config.Config, useCache bool) (discovery.Oracle, func() error, error)
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(cfg *config.Config, logger *config.Logger, formatter *output.Formatter) *CommandContext {
	return &CommandContext{
		Config:    cfg,
		Logger:    logger,
		Fmt:       formatter,
		Stderr:    os.Stderr,
		NewOracle: newExplorerOracle,
	}
}

// WithStderr sets the writer used for status lines and prompts.
func (c *CommandContext) WithStderr(w io.Writer) *CommandContext {
	c.Stderr = w
	return c
}

type cmdContextKey struct{}

// SetCmdContext attaches cc to the command's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cmdContextKey{}, cc))
}

// GetCmdContext returns the context attached by the root command, or a
// default one when the command runs standalone.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	if cc := lookupCmdContext(cmd); cc != nil {
		return cc
	}
	return NewCommandContext(config.Defaults(), config.NullLogger(),
		output.NewFormatter(output.FormatText, cmd.OutOrStdout())).WithStderr(cmd.ErrOrStderr())
}

func lookupCmdContext(cmd *cobra.Command) *CommandContext {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	cc, _ := cmd.Context().Value(cmdContextKey{}).(*CommandContext)
	return cc
}
