package cli

import (
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// VersionResponse is the JSON response for the version command.
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := GetCmdContext(cmd)
			resp := VersionResponse{
				Version:   info.Version,
				Commit:    info.Commit,
				Date:      info.Date,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			return cc.Fmt.Emit(resp, func(w io.Writer) error {
				_, err := io.WriteString(w, "shardwallet "+formatVersion(info)+"\n")
				return err
			})
		},
	}
}
