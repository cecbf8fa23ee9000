package cli

import (
	"github.com/spf13/cobra"

	"github.com/bnema/envrefresh/internal/app"
	"github.com/bnema/envrefresh/internal/domain"
)

func newRestoreCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore [Key=Value...]",
		Short: "Restore the source databases to a point in time",
		Long: `Run only the restore step: discover the source databases, check for
conflicts, validate the retention windows and restore every database to
its -restored copy.

Accepts the same parameters as refresh; destination parameters are
ignored.`,
		Example: `  envrefresh restore Source=prod RestoreDateTime="2026-10-18 03:00" Timezone=UTC ThrottleLimit=5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := collectParams(cmd, args)
			if err != nil {
				return err
			}
			return runRestore(cmd, flags, params)
		},
	}

	addParamFlags(cmd.Flags())
	cmd.AddCommand(newRestoreCleanupCmd(flags))

	return cmd
}

func runRestore(cmd *cobra.Command, flags *globalFlags, explicit domain.RefreshParams) error {
	out := cmd.OutOrStdout()
	a, err := newApp(cmd, flags, app.Options{Progress: progressPrinter(out)})
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := a.Context(cmd.Context())

	params := a.ResolveParams(ctx, explicit)
	batch, err := a.Restore.Restore(ctx, params.RestoreCommand())
	if batch != nil {
		renderBatch(out, batch)
	}
	if err != nil {
		if batch != nil {
			// Already itemized above.
			return &exitError{code: domain.ExitCodeFor(err)}
		}
		return err
	}
	if !batch.Succeeded() {
		return &exitError{code: domain.ExitGeneral}
	}
	return nil
}

func newRestoreCleanupCmd(flags *globalFlags) *cobra.Command {
	var (
		product string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup <environment>",
		Short: "Delete the -restored databases of an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := a.Context(cmd.Context())

			env := parseEnvironment(args[0], "")
			result, err := a.Restore.Cleanup(ctx, env, product, dryRun)
			if result != nil {
				renderCleanup(cmd.OutOrStdout(), result)
			}
			if err != nil {
				return err
			}
			if len(result.Failed) > 0 {
				return &exitError{code: domain.ExitGeneral}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&product, "product", "", "Product tag filter")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the databases that would be deleted")

	return cmd
}
