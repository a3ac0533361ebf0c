package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shardwallet/shardwallet/internal/config"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View and modify shardwallet configuration settings.`,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Create config.yaml in the shardwallet home directory.

An existing file is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration")

	cmd.AddCommand(
		initCmd,
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), config.Path(GetCmdContext(cmd).Config.Home))
				return err
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Get a configuration value",
			Long: `Get a configuration value by its dotted key.

Examples:
  shardwallet config get discovery.gap_limit
  shardwallet config get network.explorer_url`,
			Args: cobra.ExactArgs(1),
			RunE: runConfigGet,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Long: `Set a configuration value by its dotted key and save the file.

Examples:
  shardwallet config set discovery.mode serialized
  shardwallet config set network.explorer_url http://localhost:9090`,
			Args: cobra.ExactArgs(2),
			RunE: runConfigSet,
		},
	)
	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	cc := GetCmdContext(cmd)
	path := config.Path(cc.Config.Home)

	if _, err := os.Stat(path); err == nil && !force {
		return walleterr.WithSuggestion(
			walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"path": path}),
			"configuration already exists; use --force to overwrite",
		)
	}

	defaults := config.Defaults()
	defaults.Home = cc.Config.Home
	if err := config.Save(defaults, path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", path)
	return err
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if cc.Fmt.IsJSON() {
		tree, err := configTree(cc.Config)
		if err != nil {
			return err
		}
		return cc.Fmt.Print(tree)
	}

	data, err := yaml.Marshal(cc.Config)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)

	tree, err := configTree(cc.Config)
	if err != nil {
		return err
	}
	value, err := lookupKey(tree, args[0])
	if err != nil {
		return err
	}

	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(map[string]any{"key": args[0], "value": value})
	}
	return printScalar(cmd.OutOrStdout(), value)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	key, raw := args[0], args[1]
	path := config.Path(cc.Config.Home)

	// Edit the stored file, not the env-adjusted view.
	stored, err := config.LoadOrDefault(path)
	if err != nil {
		return err
	}
	tree, err := configTree(stored)
	if err != nil {
		return err
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	if err := setKey(tree, key, value); err != nil {
		return err
	}

	updated, err := configFromTree(tree)
	if err != nil {
		return walleterr.WithDetails(walleterr.WithCause(walleterr.ErrConfigInvalid, err), map[string]string{key: raw})
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	if err := config.Save(updated, path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	cc.Logger.Debug("config set %s=%s", key, raw)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, raw)
	return err
}

// configTree converts cfg to nested maps keyed by yaml names.
func configTree(cfg *config.Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func configFromTree(tree map[string]any) (*config.Config, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, err
	}
	cfg := config.Defaults()
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unknownKey(key string) error {
	return walleterr.WithSuggestion(
		walleterr.WithDetails(walleterr.ErrNotFound, map[string]string{"key": key}),
		"run 'shardwallet config show' to list keys",
	)
}

func lookupKey(tree map[string]any, key string) (any, error) {
	var node any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, unknownKey(key)
		}
		if node, ok = m[part]; !ok {
			return nil, unknownKey(key)
		}
	}
	return node, nil
}

func setKey(tree map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	node := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			return unknownKey(key)
		}
		node = next
	}

	leaf := parts[len(parts)-1]
	current, ok := node[leaf]
	if !ok {
		return unknownKey(key)
	}
	if _, isSection := current.(map[string]any); isSection {
		return unknownKey(key)
	}
	node[leaf] = value
	return nil
}

func printScalar(w io.Writer, v any) error {
	if m, ok := v.(map[string]any); ok {
		data, err := yaml.Marshal(m)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	_, err := fmt.Fprintln(w, v)
	return err
}
