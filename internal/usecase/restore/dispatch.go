package restore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/logging"
)

type workerContext struct {
	instant      time.Time
	pollInterval time.Duration
	maxWait      time.Duration
}

type initiated struct {
	target  domain.RestoreTarget
	started time.Time
}

// dispatch starts every restore with bounded parallelism, then awaits all
// started restores in parallel. A failing target never cancels its
// siblings; each worker runs to its own completion or timeout.
func (s *Service) dispatch(
	ctx context.Context,
	exec executor,
	targets []domain.RestoreTarget,
	wctx workerContext,
	limit int,
) []domain.TargetResult {
	log := zerowrap.FromCtx(ctx)

	starts := make([]*initiated, len(targets))
	results := make([]domain.TargetResult, 0, len(targets))
	failed := make([]*domain.TargetResult, len(targets))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, t := range targets {
		g.Go(func() error {
			started := s.clock.Now()
			if err := exec.restore(ctx, t, wctx.instant); err != nil {
				t.Status = domain.TargetFailed
				failed[i] = &domain.TargetResult{
					Target: t,
					Status: domain.TargetFailed,
					Phase:  domain.PhaseInitiation,
					Error:  err.Error(),
				}
				log.Error().Err(err).Str(logging.FieldTarget, t.DerivedName).Msg("restore initiation failed")
				s.report(t, domain.TargetFailed)
				return nil
			}
			t.Status = domain.TargetRestoring
			starts[i] = &initiated{target: t, started: started}
			log.Info().Str(logging.FieldTarget, t.DerivedName).Msg("restore initiated")
			s.report(t, domain.TargetRestoring)
			return nil
		})
	}
	_ = g.Wait()

	p := pool.NewWithResults[domain.TargetResult]().WithMaxGoroutines(limit)
	for _, st := range starts {
		if st == nil {
			continue
		}
		p.Go(func() domain.TargetResult {
			return s.await(ctx, st.target, st.started, wctx)
		})
	}
	results = append(results, p.Wait()...)
	for _, f := range failed {
		if f != nil {
			results = append(results, *f)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Target.BaseName < results[j].Target.BaseName
	})
	return results
}

// await polls one target until it is online, failed, or out of budget.
// The budget counts poll intervals actually slept, so it does not depend
// on how long individual status calls take.
func (s *Service) await(ctx context.Context, t domain.RestoreTarget, started time.Time, wctx workerContext) domain.TargetResult {
	log := zerowrap.FromCtx(ctx).With().Str(logging.FieldTarget, t.DerivedName).Logger()

	result := func(status domain.TargetStatus, phase domain.Phase, err error) domain.TargetResult {
		t.Status = status
		r := domain.TargetResult{
			Target:  t,
			Status:  status,
			Phase:   phase,
			Elapsed: s.clock.Now().Sub(started),
		}
		if err != nil {
			r.Error = err.Error()
		}
		s.report(t, status)
		return r
	}

	var waited time.Duration
	seenInProgress := false
	for {
		status, err := s.probe(ctx, t.Destination())
		if err != nil {
			log.Debug().Err(err).Msg("status check inconclusive, retrying next tick")
		} else {
			switch {
			case status == domain.DatabaseOnline:
				log.Info().Dur(zerowrap.FieldDuration, s.clock.Now().Sub(started)).Msg("restore online")
				return result(domain.TargetOnline, "", nil)
			case status == domain.DatabaseFailed:
				log.Error().Msg("restore reported failure")
				return result(domain.TargetFailed, domain.PhaseWaiting,
					fmt.Errorf("%w: control plane reports %s", domain.ErrRestoreFailed, status))
			case status.IsInProgress():
				seenInProgress = true
			}
		}

		if waited >= wctx.maxWait {
			phase := domain.PhaseWaiting
			if !seenInProgress {
				phase = domain.PhaseInitiation
			}
			log.Error().Dur("max_wait", wctx.maxWait).Str("phase", string(phase)).Msg("restore timed out")
			return result(domain.TargetTimedOut, phase,
				domain.NewTimeoutError("await restore", t.DerivedName,
					fmt.Errorf("%w after %s", domain.ErrTimedOut, wctx.maxWait)))
		}

		if err := s.clock.Sleep(ctx, wctx.pollInterval); err != nil {
			phase := domain.PhaseWaiting
			if !seenInProgress {
				phase = domain.PhaseInitiation
			}
			return result(domain.TargetFailed, phase, err)
		}
		waited += wctx.pollInterval
	}
}

// probe asks the primary status path and falls back to the secondary one
// when the primary errors or cannot tell.
func (s *Service) probe(ctx context.Context, db domain.DatabaseRef) (domain.DatabaseStatus, error) {
	status, err := s.controlPlane.GetStatus(ctx, db)
	if err == nil && status != domain.DatabaseUnknown {
		return status, nil
	}

	fallback, qerr := s.controlPlane.QueryState(ctx, db)
	if qerr == nil && fallback != domain.DatabaseUnknown {
		return fallback, nil
	}

	if err == nil && qerr == nil {
		err = domain.ErrStatusUnknown
	}
	return domain.DatabaseUnknown, domain.NewTransientPollError("poll status", db.Name, errors.Join(err, qerr))
}

// simulate records the restore and polling plan of a clean dry run.
func (s *Service) simulate(ctx context.Context, exec executor, targets []domain.RestoreTarget, wctx workerContext) {
	for _, t := range targets {
		_ = exec.restore(ctx, t, wctx.instant)
	}
	exec.note(fmt.Sprintf("await %d restore(s), polling every %s for at most %s",
		len(targets), wctx.pollInterval, wctx.maxWait))
}
