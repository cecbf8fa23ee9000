package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bnema/envrefresh/internal/adapters/in/cli/ui/components"
	"github.com/bnema/envrefresh/internal/app"
	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/usecase/restore"
)

// paramFlags maps command flags onto assignment keys.
var paramFlags = map[string]string{
	"source":            "source",
	"source-namespace":  "sourcenamespace",
	"destination":       "destination",
	"dest-namespace":    "destinationnamespace",
	"product":           "product",
	"restore-date-time": "restoredatetime",
	"timezone":          "timezone",
	"max-wait-minutes":  "maxwaitminutes",
	"throttle-limit":    "throttlelimit",
	"propagation-delay": "propagationdelay",
	"grant-account":     "grantaccount",
	"dry-run":           "dryrun",
	"force":             "force",
	"auto-approve":      "autoapprove",
}

// addParamFlags registers the flag form of every refresh parameter. Flag
// values are applied after positional assignments.
func addParamFlags(fs *pflag.FlagSet) {
	fs.String("source", "", "Source environment (name or name/namespace)")
	fs.String("source-namespace", "", "Source environment namespace")
	fs.String("destination", "", "Destination environment (name or name/namespace)")
	fs.String("dest-namespace", "", "Destination environment namespace")
	fs.String("product", "", "Product tag filter")
	fs.String("restore-date-time", "", "Restore point in local time (e.g. \"2026-10-18 03:00\")")
	fs.String("timezone", "", "IANA timezone of the restore point")
	fs.Int("max-wait-minutes", 0, "Wait budget per database, in minutes")
	fs.Int("throttle-limit", 0, "Maximum concurrent restore operations")
	fs.String("propagation-delay", "", "Backup propagation delay (minutes or duration)")
	fs.String("grant-account", "", "Account to grant access on the destination")
	fs.Bool("dry-run", false, "Preview every mutating action without performing it")
	fs.Bool("force", false, "Skip confirmation and replace existing destination attachments")
	fs.Bool("auto-approve", false, "Skip the confirmation prompt")
}

// collectParams parses positional Key=Value arguments and then applies
// every flag the user set explicitly.
func collectParams(cmd *cobra.Command, args []string) (domain.RefreshParams, error) {
	params, err := ParseAssignments(args)
	if err != nil {
		return domain.RefreshParams{}, err
	}
	var flagErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		key, ok := paramFlags[f.Name]
		if !ok || flagErr != nil {
			return
		}
		flagErr = applyAssignment(&params, key+"="+f.Value.String())
	})
	if flagErr != nil {
		return domain.RefreshParams{}, flagErr
	}
	return params, nil
}

func newRefreshCmd(flags *globalFlags) *cobra.Command {
	var (
		workflowPath string
		skip         []string
		reportPath   string
	)

	cmd := &cobra.Command{
		Use:   "refresh [Key=Value...]",
		Short: "Refresh a destination environment from a point-in-time restore",
		Long: `Run the refresh steps against the destination environment.

Parameters are given as case-insensitive Key=Value pairs or as flags:
  Source, SourceNamespace, Destination, DestinationNamespace, Product,
  RestoreDateTime, Timezone, MaxWaitMinutes, ThrottleLimit,
  PropagationDelay, GrantAccount, DryRun, Force, AutoApprove

Unset parameters are detected from the environment or taken from the
configured defaults.`,
		Example: `  envrefresh refresh Source=prod Destination=staging RestoreDateTime="2026-10-18 03:00" Timezone=Europe/Berlin DryRun`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := collectParams(cmd, args)
			if err != nil {
				return err
			}
			skipped, err := parseSkip(skip)
			if err != nil {
				return err
			}
			return runRefresh(cmd, flags, params, workflowPath, skipped, reportPath)
		},
	}

	addParamFlags(cmd.Flags())
	cmd.Flags().StringVarP(&workflowPath, "workflow", "w", "", "YAML file with the ordered step list")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Step IDs to skip (repeatable)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a YAML run report to this path")

	return cmd
}

func runRefresh(cmd *cobra.Command, flags *globalFlags, explicit domain.RefreshParams, workflowPath string, skip map[domain.StepID]bool, reportPath string) error {
	out := cmd.OutOrStdout()
	a, err := newApp(cmd, flags, app.Options{Progress: progressPrinter(out)})
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := a.Context(cmd.Context())

	steps, err := a.Steps(workflowPath)
	if err != nil {
		return err
	}
	params := a.ResolveParams(ctx, explicit)
	renderParams(out, params)

	if err := confirmRun(cmd, params, steps, skip); err != nil {
		return err
	}

	run := a.Workflow.Run(ctx, steps, params, skip)
	renderRun(out, run)

	if reportPath != "" {
		if err := writeReport(a.FS, reportPath, params, run); err != nil {
			return err
		}
		_ = cliWriteLine(out, cliRenderMeta("Report:", reportPath))
	}

	if run.ExitCode != domain.ExitSuccess {
		return &exitError{code: run.ExitCode, err: run.FatalErr}
	}
	return nil
}

// confirmRun asks before mutating steps run. Dry runs, AutoApprove and
// Force skip the prompt.
func confirmRun(cmd *cobra.Command, params domain.RefreshParams, steps []domain.StepDefinition, skip map[domain.StepID]bool) error {
	if params.DryRun || params.AutoApprove || params.Force {
		return nil
	}

	var planned []string
	for _, s := range steps {
		if s.Skip || skip[s.ID] {
			continue
		}
		planned = append(planned, string(s.ID))
	}
	question := fmt.Sprintf("Refresh %s from %s?", params.Destination, params.Source)
	ok, err := components.RunConfirm(cmd.InOrStdin(), cmd.OutOrStdout(), question,
		components.WithDescription("Steps: "+strings.Join(planned, ", ")))
	if err != nil {
		return domain.NewPrerequisiteError("confirm run", err)
	}
	if !ok {
		return domain.NewPrerequisiteError("confirm run", domain.ErrNotApproved)
	}
	return nil
}

func parseSkip(ids []string) (map[domain.StepID]bool, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	known := make(map[domain.StepID]bool)
	for _, s := range domain.DefaultSteps() {
		known[s.ID] = true
	}
	known[domain.StepGrantPermissions] = true

	skip := make(map[domain.StepID]bool, len(ids))
	for _, raw := range ids {
		id := domain.StepID(strings.ToLower(strings.TrimSpace(raw)))
		if !known[id] {
			return nil, domain.NewPrerequisiteError("parse --skip", fmt.Errorf("%w: %q", domain.ErrUnknownStep, raw))
		}
		skip[id] = true
	}
	return skip, nil
}

// progressPrinter returns a callback printing target transitions. Workers
// report concurrently, so writes are serialized.
func progressPrinter(w io.Writer) restore.ProgressFunc {
	var mu sync.Mutex
	return func(target domain.RestoreTarget, status domain.TargetStatus) {
		mu.Lock()
		defer mu.Unlock()
		_ = cliWriteLine(w, components.RenderStatus(components.TargetStatus(status),
			fmt.Sprintf("%s -> %s: %s", target.BaseName, target.DerivedName, status)))
	}
}
