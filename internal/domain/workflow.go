package domain

import "time"

// StepID identifies a refresh step.
type StepID string

const (
	StepGrantPermissions StepID = "grant-permissions"
	StepRestore          StepID = "restore"
	StepStopEnvironment  StepID = "stop-environment"
	StepCopyAttachments  StepID = "copy-attachments"
	StepAdjustResources  StepID = "adjust-resources"
	StepStartEnvironment StepID = "start-environment"
	StepCleanup          StepID = "cleanup"
)

// StepDefinition is one entry of the ordered step list.
type StepDefinition struct {
	ID   StepID `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Skip bool   `json:"skip,omitempty" yaml:"skip,omitempty"`
}

// DefaultSteps returns the built-in refresh sequence.
func DefaultSteps() []StepDefinition {
	return []StepDefinition{
		{ID: StepRestore, Name: "Restore databases to point in time"},
		{ID: StepStopEnvironment, Name: "Stop destination environment"},
		{ID: StepCopyAttachments, Name: "Copy attached blob storage"},
		{ID: StepAdjustResources, Name: "Adjust destination resources"},
		{ID: StepStartEnvironment, Name: "Start destination environment"},
		{ID: StepCleanup, Name: "Clean up restored copies"},
	}
}

// StepOutcome is the result category of a step.
type StepOutcome string

const (
	StepSkipped       StepOutcome = "Skipped"
	StepDryRunPreview StepOutcome = "DryRunPreview"
	StepSucceeded     StepOutcome = "Succeeded"
	StepFailed        StepOutcome = "Failed"
)

// StepResult records what happened to one step.
type StepResult struct {
	ID      StepID        `json:"id" yaml:"id"`
	Name    string        `json:"name" yaml:"name"`
	Outcome StepOutcome   `json:"outcome" yaml:"outcome"`
	Detail  string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	Batch   *BatchResult  `json:"batch,omitempty" yaml:"batch,omitempty"`
	Err     error         `json:"-" yaml:"-"`
}

// WorkflowRun is the ordered record of a refresh run.
type WorkflowRun struct {
	RunID    string       `json:"runId" yaml:"runId"`
	DryRun   bool         `json:"dryRun" yaml:"dryRun"`
	Steps    []StepResult `json:"steps" yaml:"steps"`
	Success  bool         `json:"success" yaml:"success"`
	ExitCode int          `json:"exitCode" yaml:"exitCode"`
	Aborted  bool         `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	FatalErr error        `json:"-" yaml:"-"`
}

// Failed returns the steps whose outcome is Failed.
func (r *WorkflowRun) Failed() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Outcome == StepFailed {
			out = append(out, s)
		}
	}
	return out
}

// RefreshParams is the typed parameter set of a refresh run. Pointer and
// empty fields are unset and are filled by auto-detection or defaults.
type RefreshParams struct {
	Source           EnvironmentRef
	Destination      EnvironmentRef
	Product          string
	RestoreDateTime  string
	Timezone         string
	MaxWaitMinutes   *int
	ThrottleLimit    *int
	PropagationDelay *time.Duration
	GrantAccount     string
	DryRun           bool
	Force            bool
	AutoApprove      bool
}

// MaxWait returns the configured wait budget.
func (p RefreshParams) MaxWait() time.Duration {
	if p.MaxWaitMinutes == nil {
		return DefaultMaxWait
	}
	return time.Duration(*p.MaxWaitMinutes) * time.Minute
}

// Concurrency returns the configured fan-out limit.
func (p RefreshParams) Concurrency() int {
	if p.ThrottleLimit == nil || *p.ThrottleLimit <= 0 {
		return DefaultConcurrencyLimit
	}
	return *p.ThrottleLimit
}

// RestoreCommand returns the restore batch input described by the params.
func (p RefreshParams) RestoreCommand() RestoreCommand {
	cmd := RestoreCommand{
		Source:           p.Source,
		Product:          p.Product,
		LocalDateTime:    p.RestoreDateTime,
		TimezoneID:       p.Timezone,
		MaxWait:          p.MaxWait(),
		ConcurrencyLimit: p.Concurrency(),
		DryRun:           p.DryRun,
	}
	if p.PropagationDelay != nil {
		cmd.PropagationDelay = *p.PropagationDelay
	}
	return cmd
}
