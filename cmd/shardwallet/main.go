// Package main is the entry point for the shardwallet CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shardwallet/shardwallet/internal/cli"
)

// Set by the release build.
//
//nolint:gochecknoglobals // ldflags targets
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	stop()
	if err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
