package cli

import (
	"github.com/spf13/cobra"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/usecase/workflow"
)

func newStepsCmd() *cobra.Command {
	var workflowPath string

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List the refresh steps in run order",
		Long: `List the built-in refresh steps, or the steps of a workflow file when
--workflow is given. grant-permissions runs first whenever GrantAccount
is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := domain.DefaultSteps()
			if workflowPath != "" {
				loaded, err := workflow.LoadStepsFile(fsys, workflowPath)
				if err != nil {
					return err
				}
				steps = loaded
			}
			renderSteps(cmd.OutOrStdout(), steps)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workflowPath, "workflow", "w", "", "YAML file with the ordered step list")

	return cmd
}
