package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bnema/envrefresh/internal/domain"
)

func sampleBatch() *domain.BatchResult {
	target := domain.RestoreTarget{BaseName: "orders", DerivedName: "orders-restored", Server: "sql-prod"}
	return &domain.BatchResult{
		Outcome: domain.BatchFailed,
		Request: domain.RestoreRequest{
			LocalDateTime: "2026-10-18 03:00",
			TimezoneID:    "Europe/Berlin",
			ResolvedUTC:   time.Date(2026, 10, 18, 1, 0, 0, 0, time.UTC),
		},
		Targets: []domain.TargetResult{
			{Target: target, Status: domain.TargetOnline, Elapsed: 3 * time.Minute},
			{
				Target:  domain.RestoreTarget{BaseName: "billing", DerivedName: "billing-restored", Server: "sql-prod"},
				Status:  domain.TargetTimedOut,
				Phase:   domain.PhaseWaiting,
				Elapsed: 60 * time.Minute,
				Error:   "timed out waiting for restore",
			},
		},
		Elapsed: 61 * time.Minute,
	}
}

func TestRenderRun(t *testing.T) {
	run := &domain.WorkflowRun{
		RunID: "run-1",
		Steps: []domain.StepResult{
			{ID: domain.StepRestore, Name: "Restore databases", Outcome: domain.StepFailed, Batch: sampleBatch(), Err: errors.New("1 target timed out")},
			{ID: domain.StepStopEnvironment, Name: "Stop destination", Outcome: domain.StepSucceeded, Detail: "stopped 4 container(s)"},
		},
		ExitCode: domain.ExitTimeout,
	}

	var buf bytes.Buffer
	renderRun(&buf, run)
	out := buf.String()

	assert.Contains(t, out, "restore")
	assert.Contains(t, out, "1 target timed out")
	assert.Contains(t, out, "stopped 4 container(s)")
	assert.Contains(t, out, "orders-restored")
	assert.Contains(t, out, "TimedOut")
	assert.Contains(t, out, "2026-10-18T01:00:00Z")
	assert.Contains(t, out, "1 succeeded, 1 failed")
	assert.Contains(t, out, "Refresh finished with 1 failed step(s)")
}

func TestRenderRun_Aborted(t *testing.T) {
	run := &domain.WorkflowRun{RunID: "run-2", Aborted: true, FatalErr: errors.New("credential rejected")}

	var buf bytes.Buffer
	renderRun(&buf, run)

	assert.Contains(t, buf.String(), "Refresh aborted: credential rejected")
}

func TestRenderBatch_ConflictsAndIssues(t *testing.T) {
	b := &domain.BatchResult{
		Outcome:   domain.BatchDryRunWouldFail,
		DryRun:    true,
		Conflicts: domain.ConflictReport{Conflicts: []string{"orders-restored"}},
		Validation: domain.ValidationOutcome{Issues: []domain.RetentionIssue{{
			Target:               "orders",
			Bound:                domain.BoundLower,
			RequestedUTC:         time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			EarliestRestorePoint: time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC),
			RetentionDays:        7,
		}}},
		PlannedActions: []string{"restore sql-prod/orders as orders-restored"},
	}

	var buf bytes.Buffer
	renderBatch(&buf, b)
	out := buf.String()

	assert.Contains(t, out, "DryRunWouldFail")
	assert.Contains(t, out, "orders-restored")
	assert.Contains(t, out, "lower bound")
	assert.Contains(t, out, "retention 7 days")
	assert.Contains(t, out, "restore sql-prod/orders as orders-restored")
}

func TestRenderCleanup(t *testing.T) {
	var buf bytes.Buffer
	renderCleanup(&buf, &domain.CleanupResult{Deleted: []string{"orders-restored"}, Failed: []string{"billing-restored"}})
	assert.Contains(t, buf.String(), "deleted orders-restored")
	assert.Contains(t, buf.String(), "failed to delete billing-restored")

	buf.Reset()
	renderCleanup(&buf, &domain.CleanupResult{DryRun: true})
	assert.Contains(t, buf.String(), "Nothing to clean up")
}

func TestRenderSteps(t *testing.T) {
	steps := domain.DefaultSteps()
	steps[5].Skip = true

	var buf bytes.Buffer
	renderSteps(&buf, steps)

	for _, s := range steps {
		assert.Contains(t, buf.String(), string(s.ID))
	}
	assert.Contains(t, buf.String(), "skipped")
}

func TestWriteReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	params := domain.RefreshParams{
		Source:          domain.EnvironmentRef{Name: "prod"},
		Destination:     domain.EnvironmentRef{Name: "staging", Namespace: "blue"},
		RestoreDateTime: "2026-10-18 03:00",
		Timezone:        "UTC",
	}
	run := &domain.WorkflowRun{
		RunID:    "run-3",
		ExitCode: domain.ExitGeneral,
		Steps: []domain.StepResult{
			{ID: domain.StepRestore, Outcome: domain.StepFailed, Batch: sampleBatch(), Err: errors.New("restore failed")},
		},
	}

	require.NoError(t, writeReport(fs, "reports/run.yaml", params, run))

	data, err := afero.ReadFile(fs, "reports/run.yaml")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "run-3", got["runId"])
	assert.Equal(t, "staging/blue", got["destination"])
	assert.Equal(t, 1, got["exitCode"])

	steps, ok := got["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 1)
	step := steps[0].(map[string]any)
	assert.Equal(t, "restore failed", step["error"])
	assert.Contains(t, step, "batch")
}
