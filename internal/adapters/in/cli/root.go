// Package cli implements the command-line adapter of envrefresh.
// Commands parse arguments, build the application and delegate to the
// use cases through the app layer.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bnema/envrefresh/internal/app"
	"github.com/bnema/envrefresh/internal/domain"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

// exitError carries an explicit exit code out of a command. The message
// has already been rendered when it is returned.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "envrefresh",
		Short: "Refresh a destination environment from a point-in-time restore",
		Long: `envrefresh restores the databases of a source environment to a point in
time, then walks the destination environment through the refresh steps:
grant permissions, stop, copy attachments, adjust resources, start and
clean up the restored copies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRefreshCmd(flags))
	rootCmd.AddCommand(newRestoreCmd(flags))
	rootCmd.AddCommand(newStepsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return domain.ExitSuccess
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	_ = cliWriteLine(stderr, cliRenderError(err.Error()))
	return domain.ExitCodeFor(err)
}

// newApp builds the application for a command, logging to the command's
// error stream.
func newApp(cmd *cobra.Command, flags *globalFlags, opts app.Options) (*app.App, error) {
	opts.ConfigPath = flags.configPath
	opts.LogLevel = flags.logLevel
	if opts.LogOutput == nil {
		opts.LogOutput = cmd.ErrOrStderr()
	}
	return app.New(cmd.Context(), opts)
}
