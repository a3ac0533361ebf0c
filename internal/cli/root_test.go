package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardwallet/shardwallet/internal/discovery"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestFormatVersion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"all fields", BuildInfo{Version: "v1.2.3", Commit: "abc1234", Date: "2024-01-15"}, "v1.2.3 (commit: abc1234, built: 2024-01-15)"},
		{"empty", BuildInfo{}, "dev (commit: unknown, built: unknown)"},
		{"only version", BuildInfo{Version: "v2.0.0"}, "v2.0.0 (commit: unknown, built: unknown)"},
		{"no version", BuildInfo{Commit: "def5678", Date: "2024-02-20"}, "dev (commit: def5678, built: 2024-02-20)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, formatVersion(tc.info))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()
	home := testHome(t, "")

	stdout, _, err := execute(t, "version", "--home", home, "-o", "text")
	require.NoError(t, err)
	assert.Equal(t, "shardwallet v0.0.0-test (commit: abc, built: 2026-01-01)\n", stdout)

	stdout, _, err = execute(t, "version", "--home", home, "-o", "json")
	require.NoError(t, err)
	var resp VersionResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "v0.0.0-test", resp.Version)
	assert.NotEmpty(t, resp.GoVersion)

	stdout, _, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "v0.0.0-test")
}

func TestCompletionCommand(t *testing.T) {
	t.Parallel()
	home := testHome(t, "")

	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		stdout, _, err := execute(t, "completion", shell, "--home", home)
		require.NoError(t, err, shell)
		assert.Contains(t, stdout, "shardwallet", shell)
	}

	_, _, err := execute(t, "completion", "tcsh", "--home", home)
	require.Error(t, err)
}

func TestHelpListsSubcommands(t *testing.T) {
	t.Parallel()
	root := NewRootCmd(BuildInfo{})
	addr, _, err := root.Find([]string{"address"})
	require.NoError(t, err)
	assert.Contains(t, addr.Long, "Subcommands:")
	assert.Contains(t, addr.Long, "group")
	assert.Contains(t, addr.Long, "new")
	assert.NotContains(t, root.Long, "Subcommands:")
}

func TestUnknownCommandPrintsError(t *testing.T) {
	t.Parallel()
	_, stderr, err := execute(t, "frobnicate")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error:")
	assert.Equal(t, walleterr.ExitGeneral, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, walleterr.ExitCanceled, ExitCode(context.Canceled))
	assert.Equal(t, walleterr.ExitCanceled, ExitCode(context.DeadlineExceeded))
	assert.Equal(t, walleterr.ExitCanceled, ExitCode(discovery.ErrDiscoveryCanceled))
	assert.Equal(t, walleterr.ExitNetwork, ExitCode(discovery.ErrOracleFailed))
	assert.Equal(t, walleterr.ExitGeneral, ExitCode(errors.New("x")))
}

func TestGetCmdContext_Default(t *testing.T) {
	t.Parallel()
	cmd := &cobra.Command{}
	cc := GetCmdContext(cmd)
	require.NotNil(t, cc)
	assert.NotNil(t, cc.Config)
	assert.NotNil(t, cc.Logger)
	assert.NotNil(t, cc.NewOracle)

	SetCmdContext(cmd, cc)
	assert.Same(t, cc, GetCmdContext(cmd))
}

func TestVerboseMirrorsLogToStderr(t *testing.T) {
	t.Parallel()
	home := testHome(t, "")

	_, stderr, err := execute(t, "version", "--home", home, "-v", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stderr, "[DEBUG] command")
}
