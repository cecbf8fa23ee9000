package domain

import (
	"strings"
	"time"
)

// DerivedSuffix is appended to a database name to form its restored copy.
const DerivedSuffix = "-restored"

// Defaults for restore batches.
const (
	DefaultConcurrencyLimit = 10
	DefaultPollInterval     = 30 * time.Second
	DefaultPropagationDelay = 10 * time.Minute
	DefaultMaxWait          = 60 * time.Minute
)

// DerivedName returns the restored-copy name for a base database name.
func DerivedName(baseName string) string {
	return baseName + DerivedSuffix
}

// IsDerivedName reports whether name already carries the restored suffix.
func IsDerivedName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), DerivedSuffix)
}

// TargetStatus tracks a restore target through the batch.
type TargetStatus string

const (
	TargetPending   TargetStatus = "Pending"
	TargetRestoring TargetStatus = "Restoring"
	TargetOnline    TargetStatus = "Online"
	TargetFailed    TargetStatus = "Failed"
	TargetTimedOut  TargetStatus = "TimedOut"
)

// IsTerminal reports whether the status ends a target's lifecycle.
func (s TargetStatus) IsTerminal() bool {
	switch s {
	case TargetOnline, TargetFailed, TargetTimedOut:
		return true
	default:
		return false
	}
}

// DatabaseStatus is the state reported by the database control plane.
type DatabaseStatus string

const (
	DatabaseOnline    DatabaseStatus = "Online"
	DatabaseRestoring DatabaseStatus = "Restoring"
	DatabaseCreating  DatabaseStatus = "Creating"
	DatabaseCopying   DatabaseStatus = "Copying"
	DatabaseNotFound  DatabaseStatus = "NotFound"
	DatabaseFailed    DatabaseStatus = "Failed"
	DatabaseUnknown   DatabaseStatus = "Unknown"
)

// ParseDatabaseStatus normalizes a raw control-plane status string.
func ParseDatabaseStatus(raw string) DatabaseStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "online":
		return DatabaseOnline
	case "restoring", "recovering":
		return DatabaseRestoring
	case "creating":
		return DatabaseCreating
	case "copying":
		return DatabaseCopying
	case "notfound", "not found":
		return DatabaseNotFound
	case "failed", "suspect", "emergencymode", "offline", "disabled":
		return DatabaseFailed
	default:
		return DatabaseUnknown
	}
}

// IsInProgress reports whether the database is still being materialized.
func (s DatabaseStatus) IsInProgress() bool {
	switch s {
	case DatabaseRestoring, DatabaseCreating, DatabaseCopying:
		return true
	default:
		return false
	}
}

// RestoreTarget is a database selected for restore.
type RestoreTarget struct {
	BaseName             string       `json:"baseName" yaml:"baseName"`
	DerivedName          string       `json:"derivedName" yaml:"derivedName"`
	ServiceTag           string       `json:"serviceTag" yaml:"serviceTag"`
	Product              string       `json:"product,omitempty" yaml:"product,omitempty"`
	Server               string       `json:"server" yaml:"server"`
	ResourceGroup        string       `json:"resourceGroup" yaml:"resourceGroup"`
	SubscriptionID       string       `json:"subscriptionId" yaml:"subscriptionId"`
	EarliestRestorePoint time.Time    `json:"earliestRestorePoint" yaml:"earliestRestorePoint"`
	Status               TargetStatus `json:"status" yaml:"status"`
}

// NewRestoreTarget builds a pending target from a directory entry.
func NewRestoreTarget(r Resource) RestoreTarget {
	return RestoreTarget{
		BaseName:       r.Name,
		DerivedName:    DerivedName(r.Name),
		ServiceTag:     r.Tag(TagService),
		Product:        r.Tag(TagProduct),
		Server:         r.Server,
		ResourceGroup:  r.ResourceGroup,
		SubscriptionID: r.SubscriptionID,
		Status:         TargetPending,
	}
}

// DatabaseRef addresses one database on a server.
type DatabaseRef struct {
	SubscriptionID string
	ResourceGroup  string
	Server         string
	Name           string
}

// String renders the reference as server/name.
func (d DatabaseRef) String() string {
	return d.Server + "/" + d.Name
}

// Source returns the reference of the target's base database.
func (t RestoreTarget) Source() DatabaseRef {
	return DatabaseRef{SubscriptionID: t.SubscriptionID, ResourceGroup: t.ResourceGroup, Server: t.Server, Name: t.BaseName}
}

// Destination returns the reference of the target's derived database.
func (t RestoreTarget) Destination() DatabaseRef {
	return DatabaseRef{SubscriptionID: t.SubscriptionID, ResourceGroup: t.ResourceGroup, Server: t.Server, Name: t.DerivedName}
}

// RestoreRequest is the requested restore point and its UTC resolution.
// ResolvedUTC is fixed once validation succeeds; clamping replaces it at
// most once with the batch-wide latest safe instant.
type RestoreRequest struct {
	LocalDateTime string    `json:"localDateTime" yaml:"localDateTime"`
	TimezoneID    string    `json:"timezoneId" yaml:"timezoneId"`
	ResolvedUTC   time.Time `json:"resolvedUtc" yaml:"resolvedUtc"`
	Adjusted      bool      `json:"adjusted" yaml:"adjusted"`
}

// RestoreCommand is the input of a restore batch.
type RestoreCommand struct {
	Source           EnvironmentRef
	Product          string
	LocalDateTime    string
	TimezoneID       string
	MaxWait          time.Duration
	ConcurrencyLimit int
	PropagationDelay time.Duration
	DryRun           bool
}

// ConflictReport lists derived names that exist before the batch starts.
type ConflictReport struct {
	Conflicts []string `json:"conflicts" yaml:"conflicts"`
}

// HasConflicts reports whether any derived name already exists.
func (c ConflictReport) HasConflicts() bool {
	return len(c.Conflicts) > 0
}

// RetentionBound names the violated side of a retention window.
type RetentionBound string

const (
	BoundLower RetentionBound = "lower"
	BoundUpper RetentionBound = "upper"
)

// RetentionIssue describes one target whose window rejects the instant.
type RetentionIssue struct {
	Target               string         `json:"target" yaml:"target"`
	Bound                RetentionBound `json:"bound" yaml:"bound"`
	RequestedUTC         time.Time      `json:"requestedUtc" yaml:"requestedUtc"`
	EarliestRestorePoint time.Time      `json:"earliestRestorePoint" yaml:"earliestRestorePoint"`
	LatestSafeInstant    time.Time      `json:"latestSafeInstant" yaml:"latestSafeInstant"`
	RetentionDays        int            `json:"retentionDays" yaml:"retentionDays"`
}

// ValidationOutcome is the result of retention-window validation.
type ValidationOutcome struct {
	IsValid         bool             `json:"isValid" yaml:"isValid"`
	NeedsAdjustment bool             `json:"needsAdjustment" yaml:"needsAdjustment"`
	AdjustedInstant time.Time        `json:"adjustedInstant,omitempty" yaml:"adjustedInstant,omitempty"`
	InvalidTargets  []string         `json:"invalidTargets,omitempty" yaml:"invalidTargets,omitempty"`
	Issues          []RetentionIssue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// Phase tells whether a target failed before or after its restore started.
type Phase string

const (
	PhaseInitiation Phase = "initiation"
	PhaseWaiting    Phase = "waiting"
)

// TargetResult is the terminal state of one target in a batch.
type TargetResult struct {
	Target  RestoreTarget `json:"target" yaml:"target"`
	Status  TargetStatus  `json:"status" yaml:"status"`
	Phase   Phase         `json:"phase,omitempty" yaml:"phase,omitempty"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchOutcome is the overall result of a restore batch.
type BatchOutcome string

const (
	BatchSucceeded       BatchOutcome = "Succeeded"
	BatchFailed          BatchOutcome = "Failed"
	BatchCanceled        BatchOutcome = "Canceled"
	BatchDryRunClean     BatchOutcome = "DryRunClean"
	BatchDryRunWouldFail BatchOutcome = "DryRunWouldFail"
)

// BatchResult is the structured outcome of a restore batch.
type BatchResult struct {
	Outcome        BatchOutcome      `json:"outcome" yaml:"outcome"`
	Request        RestoreRequest    `json:"request" yaml:"request"`
	Conflicts      ConflictReport    `json:"conflicts" yaml:"conflicts"`
	Validation     ValidationOutcome `json:"validation" yaml:"validation"`
	Targets        []TargetResult    `json:"targets" yaml:"targets"`
	DryRun         bool              `json:"dryRun" yaml:"dryRun"`
	PlannedActions []string          `json:"plannedActions,omitempty" yaml:"plannedActions,omitempty"`
	Elapsed        time.Duration     `json:"elapsed" yaml:"elapsed"`
}

// Succeeded reports whether the batch reached its goal. A clean dry run
// counts as success.
func (b *BatchResult) Succeeded() bool {
	return b != nil && (b.Outcome == BatchSucceeded || b.Outcome == BatchDryRunClean)
}

// Successes returns the targets that reached Online.
func (b *BatchResult) Successes() []TargetResult {
	var out []TargetResult
	for _, t := range b.Targets {
		if t.Status == TargetOnline {
			out = append(out, t)
		}
	}
	return out
}

// Failures returns the targets that did not reach Online.
func (b *BatchResult) Failures() []TargetResult {
	var out []TargetResult
	for _, t := range b.Targets {
		if t.Status != TargetOnline {
			out = append(out, t)
		}
	}
	return out
}

// AllTimedOut reports whether every failed target failed by timeout.
func (b *BatchResult) AllTimedOut() bool {
	failures := b.Failures()
	if len(failures) == 0 {
		return false
	}
	for _, f := range failures {
		if f.Status != TargetTimedOut {
			return false
		}
	}
	return true
}

// CleanupResult lists derived databases removed (or planned for removal).
type CleanupResult struct {
	Deleted        []string `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Failed         []string `json:"failed,omitempty" yaml:"failed,omitempty"`
	DryRun         bool     `json:"dryRun" yaml:"dryRun"`
	PlannedActions []string `json:"plannedActions,omitempty" yaml:"plannedActions,omitempty"`
}
