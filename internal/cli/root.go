// Package cli implements the shardwallet command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shardwallet/shardwallet/internal/config"
	"github.com/shardwallet/shardwallet/internal/output"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	home    string
	output  string
	verbose bool
}

// NewRootCmd builds the full command tree.
func NewRootCmd(info BuildInfo) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "shardwallet",
		Short: "Sharded-chain HD wallet address discovery",
		Long: `shardwallet finds the active addresses of a BIP44 account on a sharded
blockchain, where every address belongs to one of a fixed number of groups.

Each group is scanned independently with a gap limit, in parallel or one
group at a time for hardware signers, and the results are merged in group
order.

Example:
  shardwallet discover --input "abandon abandon ... about"
  shardwallet address new --group 2
  shardwallet address group 1DrDyTvSYPuJzZqrhHTSCxmgUVpNkD3sjA3j3UWa9Pje`,
		Version:       formatVersion(info),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := initCommandContext(cmd, flags)
			if err != nil {
				return err
			}
			SetCmdContext(cmd, cc)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			cleanup(GetCmdContext(cmd))
		},
	}

	root.PersistentFlags().StringVar(&flags.home, "home", "", "shardwallet data directory (default: ~/.shardwallet)")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "auto", "output format: text, json, auto")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newDiscoverCmd(),
		newAddressCmd(),
		newConfigCmd(),
		newCompletionCmd(),
		newVersionCmd(info),
	)
	walkCommands(root, enrichParentLong)

	return root
}

// Execute runs the command tree and prints any error in the active format.
func Execute(ctx context.Context, info BuildInfo) error {
	root := NewRootCmd(info)
	return run(ctx, root, os.Args[1:], os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) error {
	root.SetArgs(args)

	executed, err := root.ExecuteContextC(ctx)
	if err == nil {
		return nil
	}

	format := output.FormatText
	if cc := lookupCmdContext(executed); cc != nil {
		format = cc.Fmt.Format()
	}
	_ = output.FormatError(stderr, err, format)
	return err
}

// ExitCode returns the process exit code for an error.
func ExitCode(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return walleterr.ExitCanceled
	}
	return walleterr.ExitCode(err)
}

// initCommandContext loads configuration, applies environment and flag
// overrides, and opens the logger.
func initCommandContext(cmd *cobra.Command, flags *globalFlags) (*CommandContext, error) {
	home := flags.home
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	cfg, err := config.LoadOrDefault(config.Path(home))
	if err != nil {
		return nil, err
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	if flags.home != "" {
		cfg.Home = flags.home
	}
	if flags.verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if flags.output != "" && flags.output != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = flags.output
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(config.ParseLogLevel(cfg.Logging.Level), cfg.Logging.File)
	if err != nil {
		// An unwritable log file must not block the command.
		logger = config.NullLogger()
	}
	if cfg.Output.Verbose {
		if logger.Level() == config.LogLevelOff {
			logger.SetLevel(config.LogLevelDebug)
		}
		logger.SetMirror(cmd.ErrOrStderr())
	}

	formatter := output.NewFormatter(output.ParseFormat(cfg.Output.DefaultFormat), cmd.OutOrStdout()).
		WithColor(output.ParseColorMode(cfg.Output.Color))

	logger.Debug("command %q home=%s format=%s", cmd.CommandPath(), cfg.GetHome(), formatter.Format())

	return NewCommandContext(cfg, logger, formatter).WithStderr(cmd.ErrOrStderr()), nil
}

func cleanup(cc *CommandContext) {
	if cc != nil && cc.Logger != nil {
		_ = cc.Logger.Close()
	}
}

// formatVersion renders build information for --version.
func formatVersion(info BuildInfo) string {
	version, commit, date := info.Version, info.Commit, info.Date
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}
