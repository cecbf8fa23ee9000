// Package cmd is the process entry point of the envrefresh binary.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/envrefresh/internal/adapters/in/cli"
	"github.com/bnema/envrefresh/pkg/version"
)

// ExecuteCLI runs the command line and exits with its status. An
// interrupt cancels the running batch; workers stop at their next poll.
func ExecuteCLI(build, commit, date string) {
	version.Set(build, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}
