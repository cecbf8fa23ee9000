package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bnema/envrefresh/internal/adapters/in/cli/ui/components"
	"github.com/bnema/envrefresh/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/envrefresh/internal/domain"
)

var cliWriteLine = func(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}

func cliRenderTitle(msg string) string {
	return styles.Theme.Title.Render(msg)
}

func cliRenderMuted(msg string) string {
	return styles.Theme.Muted.Render(msg)
}

func cliRenderListItem(msg string) string {
	return styles.RenderListItem(msg)
}

func cliRenderMeta(label, value string) string {
	return styles.Theme.Bold.Render(label) + " " + styles.Theme.Muted.Render(value)
}

func cliRenderSuccess(msg string) string {
	return styles.RenderSuccess(msg)
}

func cliRenderWarning(msg string) string {
	return styles.RenderWarning(msg)
}

func cliRenderError(msg string) string {
	return styles.RenderError(msg)
}

// renderParams prints the resolved parameter set before a run.
func renderParams(w io.Writer, p domain.RefreshParams) {
	_ = cliWriteLine(w, cliRenderTitle("Refresh parameters"))
	_ = cliWriteLine(w, cliRenderMeta("Source:", p.Source.String()))
	_ = cliWriteLine(w, cliRenderMeta("Destination:", p.Destination.String()))
	if p.Product != "" {
		_ = cliWriteLine(w, cliRenderMeta("Product:", p.Product))
	}
	_ = cliWriteLine(w, cliRenderMeta("Restore point:", p.RestoreDateTime+" ("+p.Timezone+")"))
	_ = cliWriteLine(w, cliRenderMeta("Max wait:", p.MaxWait().String()))
	_ = cliWriteLine(w, cliRenderMeta("Throttle limit:", fmt.Sprint(p.Concurrency())))
	if p.GrantAccount != "" {
		_ = cliWriteLine(w, cliRenderMeta("Grant account:", p.GrantAccount))
	}
	if p.DryRun {
		_ = cliWriteLine(w, cliRenderWarning("Dry run: no changes will be made"))
	}
	_ = cliWriteLine(w, "")
}

// renderRun prints the step table, the restore batch detail and a summary.
func renderRun(w io.Writer, run *domain.WorkflowRun) {
	rows := make([][]string, 0, len(run.Steps))
	for _, s := range run.Steps {
		detail := s.Detail
		if s.Err != nil && detail == "" {
			detail = s.Err.Error()
		}
		rows = append(rows, []string{
			string(s.ID),
			s.Name,
			components.RenderStatus(components.StepStatus(s.Outcome), string(s.Outcome)),
			formatElapsed(s.Elapsed),
			detail,
		})
	}
	_ = cliWriteLine(w, cliRenderTitle("Steps"))
	_ = cliWriteLine(w, components.NewTable(
		components.WithColumns([]components.TableColumn{
			{Title: "ID"}, {Title: "Step"}, {Title: "Outcome"}, {Title: "Elapsed"}, {Title: "Detail", Width: 60},
		}),
		components.WithRows(rows),
	).Render())

	for _, s := range run.Steps {
		if s.Batch != nil {
			_ = cliWriteLine(w, "")
			renderBatch(w, s.Batch)
		}
	}

	_ = cliWriteLine(w, "")
	_ = cliWriteLine(w, cliRenderMeta("Run:", run.RunID))
	switch {
	case run.Success && run.DryRun:
		_ = cliWriteLine(w, cliRenderSuccess("Dry run completed, no changes were made"))
	case run.Success:
		_ = cliWriteLine(w, cliRenderSuccess("Refresh completed"))
	case run.Aborted:
		msg := "Refresh aborted"
		if run.FatalErr != nil {
			msg += ": " + run.FatalErr.Error()
		}
		_ = cliWriteLine(w, cliRenderError(msg))
	default:
		_ = cliWriteLine(w, cliRenderError(fmt.Sprintf("Refresh finished with %d failed step(s)", len(run.Failed()))))
	}
}

// renderBatch prints the outcome of one restore batch, target by target.
func renderBatch(w io.Writer, b *domain.BatchResult) {
	_ = cliWriteLine(w, cliRenderTitle("Restore batch")+" "+
		components.RenderStatusBadge(components.BatchStatus(b.Outcome), string(b.Outcome)))
	if b.Request.TimezoneID != "" {
		_ = cliWriteLine(w, cliRenderMeta("Requested:", b.Request.LocalDateTime+" ("+b.Request.TimezoneID+")"))
	}
	if !b.Request.ResolvedUTC.IsZero() {
		resolved := b.Request.ResolvedUTC.UTC().Format(time.RFC3339)
		if b.Request.Adjusted {
			resolved += " (adjusted to latest safe instant)"
		}
		_ = cliWriteLine(w, cliRenderMeta("Restore point (UTC):", resolved))
	}

	if b.Conflicts.HasConflicts() {
		_ = cliWriteLine(w, cliRenderError("Derived databases already exist:"))
		for _, c := range b.Conflicts.Conflicts {
			_ = cliWriteLine(w, cliRenderListItem(c))
		}
	}
	for _, issue := range b.Validation.Issues {
		_ = cliWriteLine(w, cliRenderError(formatIssue(issue)))
	}

	if len(b.Targets) > 0 {
		rows := make([][]string, 0, len(b.Targets))
		for _, t := range b.Targets {
			rows = append(rows, []string{
				t.Target.BaseName,
				t.Target.DerivedName,
				t.Target.Server,
				components.RenderStatus(components.TargetStatus(t.Status), string(t.Status)),
				string(t.Phase),
				formatElapsed(t.Elapsed),
				t.Error,
			})
		}
		_ = cliWriteLine(w, components.NewTable(
			components.WithColumns([]components.TableColumn{
				{Title: "Database"}, {Title: "Restored as"}, {Title: "Server"}, {Title: "Status"},
				{Title: "Phase"}, {Title: "Elapsed"}, {Title: "Error", Width: 50},
			}),
			components.WithRows(rows),
		).Render())
	}

	renderPlanned(w, b.PlannedActions)
	_ = cliWriteLine(w, cliRenderMuted(fmt.Sprintf("%d succeeded, %d failed in %s",
		len(b.Successes()), len(b.Failures()), formatElapsed(b.Elapsed))))
}

// renderCleanup prints what a cleanup removed or would remove.
func renderCleanup(w io.Writer, r *domain.CleanupResult) {
	_ = cliWriteLine(w, cliRenderTitle("Cleanup"))
	if r.DryRun {
		renderPlanned(w, r.PlannedActions)
		if len(r.PlannedActions) == 0 {
			_ = cliWriteLine(w, cliRenderMuted("Nothing to clean up"))
		}
		return
	}
	if len(r.Deleted) == 0 && len(r.Failed) == 0 {
		_ = cliWriteLine(w, cliRenderMuted("Nothing to clean up"))
		return
	}
	for _, name := range r.Deleted {
		_ = cliWriteLine(w, components.RenderStatus(components.StatusSuccess, "deleted "+name))
	}
	for _, name := range r.Failed {
		_ = cliWriteLine(w, components.RenderStatus(components.StatusError, "failed to delete "+name))
	}
}

// renderSteps lists step definitions in run order.
func renderSteps(w io.Writer, steps []domain.StepDefinition) {
	rows := make([][]string, 0, len(steps))
	for i, s := range steps {
		state := ""
		if s.Skip {
			state = "skipped"
		}
		rows = append(rows, []string{fmt.Sprint(i + 1), string(s.ID), s.Name, state})
	}
	_ = cliWriteLine(w, components.SimpleTable([]string{"#", "ID", "Name", ""}, rows))
}

func renderPlanned(w io.Writer, actions []string) {
	if len(actions) == 0 {
		return
	}
	_ = cliWriteLine(w, styles.Theme.Heading.Render("Planned actions"))
	for _, a := range actions {
		_ = cliWriteLine(w, cliRenderListItem(a))
	}
}

// formatIssue renders a retention issue with its target, bound and window.
func formatIssue(issue domain.RetentionIssue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: requested %s is outside the %s bound",
		issue.Target, issue.RequestedUTC.UTC().Format(time.RFC3339), issue.Bound)
	switch issue.Bound {
	case domain.BoundLower:
		fmt.Fprintf(&b, " (earliest restore point %s, retention %d days)",
			issue.EarliestRestorePoint.UTC().Format(time.RFC3339), issue.RetentionDays)
	case domain.BoundUpper:
		fmt.Fprintf(&b, " (latest safe instant %s)", issue.LatestSafeInstant.UTC().Format(time.RFC3339))
	}
	return b.String()
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
