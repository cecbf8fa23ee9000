// Package restore implements the point-in-time restore orchestrator.
package restore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/boundaries/in"
	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/logging"
)

// Ensure Service implements in.RestoreService.
var _ in.RestoreService = (*Service)(nil)

// DefaultExcludePatterns hides administrative, system and already-derived
// databases from discovery.
var DefaultExcludePatterns = []string{"master", "restored", "landlord", "copy"}

// Config holds orchestrator tunables.
type Config struct {
	PollInterval     time.Duration
	PropagationDelay time.Duration
	MaxWait          time.Duration
	ConcurrencyLimit int
	ExcludePatterns  []string
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = domain.DefaultPollInterval
	}
	if c.PropagationDelay <= 0 {
		c.PropagationDelay = domain.DefaultPropagationDelay
	}
	if c.MaxWait <= 0 {
		c.MaxWait = domain.DefaultMaxWait
	}
	if c.ConcurrencyLimit <= 0 {
		c.ConcurrencyLimit = domain.DefaultConcurrencyLimit
	}
	if c.ExcludePatterns == nil {
		c.ExcludePatterns = DefaultExcludePatterns
	}
	return c
}

// ProgressFunc receives per-target status transitions. It is called from
// worker goroutines and must be safe for concurrent use.
type ProgressFunc func(target domain.RestoreTarget, status domain.TargetStatus)

// Option configures a Service.
type Option func(*Service)

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Service) {
		s.progress = fn
	}
}

// Service orchestrates point-in-time restore batches.
type Service struct {
	directory    out.ResourceDirectory
	controlPlane out.DatabaseControlPlane
	clock        out.Clock
	config       Config
	progress     ProgressFunc
}

// NewService creates a restore service.
func NewService(
	directory out.ResourceDirectory,
	controlPlane out.DatabaseControlPlane,
	clock out.Clock,
	config Config,
	opts ...Option,
) *Service {
	s := &Service{
		directory:    directory,
		controlPlane: controlPlane,
		clock:        clock,
		config:       config.withDefaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore runs one restore batch: resolve the instant, discover targets,
// refuse on conflicts, validate retention windows, then initiate and await
// every restore. In dry-run mode every read-only phase runs and mutating
// calls are recorded as planned actions instead.
func (s *Service) Restore(ctx context.Context, cmd domain.RestoreCommand) (*domain.BatchResult, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Restore",
		zerowrap.FieldEnv:     cmd.Source.String(),
		logging.FieldDryRun:   cmd.DryRun,
	})
	log := zerowrap.FromCtx(ctx)

	started := s.clock.Now()
	exec := s.executorFor(cmd.DryRun)
	batch := &domain.BatchResult{
		DryRun: cmd.DryRun,
		Request: domain.RestoreRequest{
			LocalDateTime: cmd.LocalDateTime,
			TimezoneID:    cmd.TimezoneID,
		},
	}
	finish := func(outcome domain.BatchOutcome, err error) (*domain.BatchResult, error) {
		batch.Outcome = outcome
		batch.PlannedActions = exec.planned()
		batch.Elapsed = s.clock.Now().Sub(started)
		return batch, err
	}

	// Validation problems are accumulated so a dry run reports all of them.
	var problems []error

	instant, err := ResolveInstant(cmd.LocalDateTime, cmd.TimezoneID)
	if err != nil {
		if !cmd.DryRun {
			return finish(domain.BatchCanceled, err)
		}
		problems = append(problems, err)
	} else {
		batch.Request.ResolvedUTC = instant
		log.Info().
			Str("local", cmd.LocalDateTime).
			Str("timezone", cmd.TimezoneID).
			Time("utc", instant).
			Msg("restore point resolved")
	}

	targets, err := s.discoverTargets(ctx, cmd.Source, cmd.Product)
	if err != nil {
		return finish(failedOutcome(cmd.DryRun), err)
	}

	conflicts, err := s.checkConflicts(ctx, targets)
	if err != nil {
		return finish(failedOutcome(cmd.DryRun), err)
	}
	batch.Conflicts = conflicts
	if conflicts.HasConflicts() {
		conflictErr := domain.NewConflictError("check conflicts", "",
			fmt.Errorf("%w: %v; remove them before retrying", domain.ErrDerivedNameExists, conflicts.Conflicts))
		log.Error().Strs("conflicts", conflicts.Conflicts).Msg("derived databases already exist, batch refused")
		if !cmd.DryRun {
			batch.Targets = pendingResults(targets)
			return finish(domain.BatchCanceled, conflictErr)
		}
		problems = append(problems, conflictErr)
	}

	if !batch.Request.ResolvedUTC.IsZero() {
		windows, err := s.fetchWindows(ctx, targets, s.propagationDelay(cmd.PropagationDelay), s.concurrency(cmd.ConcurrencyLimit))
		if err != nil {
			return finish(failedOutcome(cmd.DryRun), err)
		}
		for i := range targets {
			targets[i].EarliestRestorePoint = windows[i].EarliestRestorePoint
		}

		outcome := ValidateRetention(windows, instant)
		batch.Validation = outcome
		if !outcome.IsValid {
			retentionErr := retentionError(outcome)
			log.Error().Strs("invalid_targets", outcome.InvalidTargets).Msg("restore point outside retention window")
			if !cmd.DryRun {
				batch.Targets = pendingResults(targets)
				return finish(domain.BatchCanceled, retentionErr)
			}
			problems = append(problems, retentionErr)
		} else if outcome.NeedsAdjustment {
			batch.Request.ResolvedUTC = outcome.AdjustedInstant
			batch.Request.Adjusted = true
			log.Warn().
				Time("requested", instant).
				Time("adjusted", outcome.AdjustedInstant).
				Msg("restore point too recent for backup propagation, clamped to latest safe instant")
		}
	}

	batch.Targets = pendingResults(targets)

	if len(problems) > 0 {
		return finish(domain.BatchDryRunWouldFail, errors.Join(problems...))
	}

	wctx := workerContext{
		instant:      batch.Request.ResolvedUTC,
		pollInterval: s.config.PollInterval,
		maxWait:      s.maxWait(cmd.MaxWait),
	}
	limit := s.concurrency(cmd.ConcurrencyLimit)

	if exec.dryRun() {
		s.simulate(ctx, exec, targets, wctx)
		return finish(domain.BatchDryRunClean, nil)
	}

	batch.Targets = s.dispatch(ctx, exec, targets, wctx, limit)
	return s.aggregate(ctx, batch, finish)
}

func (s *Service) aggregate(
	ctx context.Context,
	batch *domain.BatchResult,
	finish func(domain.BatchOutcome, error) (*domain.BatchResult, error),
) (*domain.BatchResult, error) {
	log := zerowrap.FromCtx(ctx)

	failures := batch.Failures()
	if len(failures) == 0 {
		log.Info().Int(zerowrap.FieldCount, len(batch.Targets)).Msg("all targets online")
		return finish(domain.BatchSucceeded, nil)
	}

	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, fmt.Errorf("%s (%s, phase %s): %s", f.Target.DerivedName, f.Status, f.Phase, f.Error))
	}
	joined := errors.Join(errs...)

	log.Error().
		Int("failed", len(failures)).
		Int("succeeded", len(batch.Successes())).
		Msg("restore batch failed")

	if batch.AllTimedOut() {
		return finish(domain.BatchFailed, domain.NewTimeoutError("restore batch", "", fmt.Errorf("%w: %w", domain.ErrTimedOut, joined)))
	}
	return finish(domain.BatchFailed, fmt.Errorf("%w: %w", domain.ErrRestoreFailed, joined))
}

func (s *Service) maxWait(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	return s.config.MaxWait
}

func (s *Service) propagationDelay(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	return s.config.PropagationDelay
}

func (s *Service) concurrency(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.config.ConcurrencyLimit
}

func (s *Service) report(target domain.RestoreTarget, status domain.TargetStatus) {
	if s.progress != nil {
		s.progress(target, status)
	}
}

func failedOutcome(dryRun bool) domain.BatchOutcome {
	if dryRun {
		return domain.BatchDryRunWouldFail
	}
	return domain.BatchCanceled
}

func pendingResults(targets []domain.RestoreTarget) []domain.TargetResult {
	results := make([]domain.TargetResult, len(targets))
	for i, t := range targets {
		results[i] = domain.TargetResult{Target: t, Status: t.Status}
	}
	return results
}
