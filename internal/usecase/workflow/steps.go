package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/logging"
)

func (s *Service) grantPermissions(ctx context.Context, st *runState) (stepOutput, error) {
	p := st.params
	if s.ports.Permissions == nil {
		return stepOutput{}, domain.NewPrerequisiteError("grant permissions",
			fmt.Errorf("%w: no permission endpoint configured", domain.ErrInvalidConfig))
	}

	envs := []domain.EnvironmentRef{p.Source, p.Destination}
	if p.DryRun {
		return stepOutput{detail: fmt.Sprintf("would grant %s access to %s and %s", p.GrantAccount, p.Source, p.Destination)}, nil
	}

	total := 0
	for _, env := range envs {
		n, err := s.ports.Permissions.Grant(ctx, env, p.GrantAccount)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				return stepOutput{}, domain.NewAuthenticationError("grant permissions", err)
			}
			return stepOutput{}, domain.NewPrerequisiteError("grant permissions", fmt.Errorf("%s: %w", env, err))
		}
		total += n
	}
	return stepOutput{detail: fmt.Sprintf("granted %d role assignment(s) to %s", total, p.GrantAccount)}, nil
}

func (s *Service) restoreDatabases(ctx context.Context, st *runState) (stepOutput, error) {
	cmd := st.params.RestoreCommand()

	batch, err := s.ports.Restore.Restore(ctx, cmd)
	st.batch = batch
	st.refused = refused(batch, err)
	if batch != nil {
		st.conflicts = batch.Conflicts.Conflicts
	}
	return stepOutput{batch: batch, detail: batchDetail(batch)}, err
}

func batchDetail(b *domain.BatchResult) string {
	if b == nil {
		return ""
	}
	instant := b.Request.ResolvedUTC.Format(time.RFC3339)
	if b.Request.Adjusted {
		instant += " (adjusted)"
	}
	switch b.Outcome {
	case domain.BatchDryRunClean:
		return fmt.Sprintf("would restore %d database(s) to %s", len(b.Targets), instant)
	case domain.BatchDryRunWouldFail:
		return fmt.Sprintf("would fail: %d conflict(s), %d invalid target(s)", len(b.Conflicts.Conflicts), len(b.Validation.InvalidTargets))
	case domain.BatchCanceled:
		return "canceled before any restore started"
	default:
		return fmt.Sprintf("%d/%d database(s) online at %s", len(b.Successes()), len(b.Targets), instant)
	}
}

func (s *Service) stopEnvironment(ctx context.Context, st *runState) (stepOutput, error) {
	p := st.params
	if p.DryRun {
		return stepOutput{detail: fmt.Sprintf("would stop workloads of %s", p.Destination)}, nil
	}
	n, err := s.ports.Environments.Stop(ctx, p.Destination)
	if err != nil {
		return stepOutput{}, fmt.Errorf("stop %s: %w", p.Destination, err)
	}
	return stepOutput{detail: fmt.Sprintf("stopped %d workload(s) of %s", n, p.Destination)}, nil
}

func (s *Service) startEnvironment(ctx context.Context, st *runState) (stepOutput, error) {
	p := st.params
	if p.DryRun {
		return stepOutput{detail: fmt.Sprintf("would start workloads of %s", p.Destination)}, nil
	}
	n, err := s.ports.Environments.Start(ctx, p.Destination)
	if err != nil {
		return stepOutput{}, fmt.Errorf("start %s: %w", p.Destination, err)
	}
	return stepOutput{detail: fmt.Sprintf("started %d workload(s) of %s", n, p.Destination)}, nil
}

type copyPair struct {
	from domain.DatabaseRef
	to   domain.DatabaseRef
}

// copyAttachments replaces every destination database with a copy of its
// restored counterpart (matched by service tag) and copies blob storage.
func (s *Service) copyAttachments(ctx context.Context, st *runState) (stepOutput, error) {
	log := zerowrap.FromCtx(ctx)
	p := st.params

	restored, err := st.restoredTargets()
	if err != nil {
		return stepOutput{}, err
	}

	dests, err := s.ports.Restore.Discover(ctx, p.Destination, p.Product)
	if err != nil {
		return stepOutput{}, fmt.Errorf("discover destination databases: %w", err)
	}
	byService := make(map[string]domain.RestoreTarget, len(dests))
	for _, d := range dests {
		byService[strings.ToLower(d.ServiceTag)] = d
	}

	var pairs []copyPair
	var unmatched []string
	bindings := make(map[string]string)
	for _, r := range restored {
		d, ok := byService[strings.ToLower(r.ServiceTag)]
		if !ok {
			unmatched = append(unmatched, r.BaseName)
			continue
		}
		pairs = append(pairs, copyPair{from: r.Destination(), to: d.Source()})
		bindings[r.ServiceTag] = d.BaseName
	}
	if len(unmatched) > 0 {
		log.Warn().Strs("unmatched", unmatched).Msg("no destination database for service, not copied")
	}
	st.bindings = bindings

	if p.DryRun {
		detail := fmt.Sprintf("would replace %d database(s) with restored copies and copy attachments %s -> %s",
			len(pairs), p.Source, p.Destination)
		return stepOutput{detail: withUnmatched(detail, unmatched)}, nil
	}

	if err := s.replaceDatabases(ctx, pairs, p.Concurrency()); err != nil {
		return stepOutput{}, err
	}

	stats, err := s.ports.Blobs.Copy(ctx, p.Source, p.Destination, p.Force)
	if err != nil {
		return stepOutput{detail: fmt.Sprintf("replaced %d database(s)", len(pairs))}, fmt.Errorf("copy attachments: %w", err)
	}

	detail := fmt.Sprintf("replaced %d database(s), copied %d file(s) (%d bytes)", len(pairs), stats.Files, stats.Bytes)
	return stepOutput{detail: withUnmatched(detail, unmatched)}, nil
}

func (s *Service) replaceDatabases(ctx context.Context, pairs []copyPair, limit int) error {
	log := zerowrap.FromCtx(ctx)
	errs := make([]error, len(pairs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, pair := range pairs {
		g.Go(func() error {
			if err := s.ports.Databases.ReplaceWithCopy(ctx, pair.from, pair.to); err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					errs[i] = domain.NewAuthenticationError("replace database", err)
				} else {
					errs[i] = fmt.Errorf("replace %s with copy of %s: %w", pair.to, pair.from, err)
				}
				return nil
			}
			log.Info().Str(logging.FieldTarget, pair.to.Name).Str("from", pair.from.Name).Msg("database replaced")
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func withUnmatched(detail string, unmatched []string) string {
	if len(unmatched) == 0 {
		return detail
	}
	return fmt.Sprintf("%s; no destination for %s", detail, strings.Join(unmatched, ", "))
}

// adjustResources points destination services at their refreshed
// databases. Without bindings from the copy step they are rebuilt from
// the destination's own databases.
func (s *Service) adjustResources(ctx context.Context, st *runState) (stepOutput, error) {
	p := st.params

	bindings := st.bindings
	if len(bindings) == 0 {
		dests, err := s.ports.Restore.Discover(ctx, p.Destination, p.Product)
		if err != nil {
			return stepOutput{}, fmt.Errorf("discover destination databases: %w", err)
		}
		bindings = make(map[string]string, len(dests))
		for _, d := range dests {
			bindings[d.ServiceTag] = d.BaseName
		}
	}

	services := make([]string, 0, len(bindings))
	for svc := range bindings {
		services = append(services, svc)
	}
	sort.Strings(services)

	if p.DryRun {
		return stepOutput{detail: fmt.Sprintf("would bind %d service(s) in %s: %s", len(services), p.Destination, strings.Join(services, ", "))}, nil
	}
	if err := s.ports.Adjuster.Adjust(ctx, p.Destination, bindings); err != nil {
		return stepOutput{}, fmt.Errorf("adjust resources of %s: %w", p.Destination, err)
	}
	return stepOutput{detail: fmt.Sprintf("bound %d service(s) in %s", len(services), p.Destination)}, nil
}

// refused reports whether a restore batch ended before any database was
// restored, either by refusal or by an error that produced no batch.
func refused(b *domain.BatchResult, err error) bool {
	if b == nil {
		return err != nil
	}
	if b.Conflicts.HasConflicts() {
		return true
	}
	switch b.Outcome {
	case domain.BatchCanceled, domain.BatchDryRunWouldFail:
		return true
	}
	return false
}

func (s *Service) cleanup(ctx context.Context, st *runState) (stepOutput, error) {
	p := st.params
	// Copies that blocked the batch are never removed automatically.
	if len(st.conflicts) > 0 {
		return stepOutput{skipped: true, detail: fmt.Sprintf("conflicting copies left for operator: %s", strings.Join(st.conflicts, ", "))}, nil
	}
	if st.refused {
		return stepOutput{skipped: true, detail: "restore did not start, existing copies left for operator"}, nil
	}
	result, err := s.ports.Restore.Cleanup(ctx, p.Source, p.Product, p.DryRun)
	if result == nil {
		return stepOutput{}, err
	}
	verb := "deleted"
	if p.DryRun {
		verb = "would delete"
	}
	detail := fmt.Sprintf("%s %d restored cop(ies)", verb, len(result.Deleted))
	if len(result.Failed) > 0 {
		detail += fmt.Sprintf(", %d failed", len(result.Failed))
	}
	return stepOutput{detail: detail}, err
}

// restoredTargets returns the targets the restore step brought online, or
// in a dry run the targets it would restore.
func (st *runState) restoredTargets() ([]domain.RestoreTarget, error) {
	if st.batch == nil {
		return nil, fmt.Errorf("%w: restore step has not run", domain.ErrRestoreFailed)
	}
	if !st.batch.Succeeded() {
		return nil, fmt.Errorf("%w: restore step did not complete (%s)", domain.ErrRestoreFailed, st.batch.Outcome)
	}

	results := st.batch.Successes()
	if st.batch.DryRun {
		results = st.batch.Targets
	}
	targets := make([]domain.RestoreTarget, 0, len(results))
	for _, r := range results {
		targets = append(targets, r.Target)
	}
	return targets, nil
}
