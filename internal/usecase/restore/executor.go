package restore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/logging"
)

// executor performs the mutating control-plane calls. The dry executor
// records what would happen instead, so both modes share every read-only
// phase.
type executor interface {
	dryRun() bool
	restore(ctx context.Context, t domain.RestoreTarget, pointInTime time.Time) error
	delete(ctx context.Context, db domain.DatabaseRef) error
	note(action string)
	planned() []string
}

func (s *Service) executorFor(dryRun bool) executor {
	if dryRun {
		return &dryExecutor{}
	}
	return &liveExecutor{controlPlane: s.controlPlane}
}

type liveExecutor struct {
	controlPlane out.DatabaseControlPlane
}

func (e *liveExecutor) dryRun() bool { return false }

func (e *liveExecutor) restore(ctx context.Context, t domain.RestoreTarget, pointInTime time.Time) error {
	return e.controlPlane.RestoreAsync(ctx, t.Source(), t.DerivedName, pointInTime)
}

func (e *liveExecutor) delete(ctx context.Context, db domain.DatabaseRef) error {
	return e.controlPlane.Delete(ctx, db)
}

func (e *liveExecutor) note(string) {}

func (e *liveExecutor) planned() []string { return nil }

type dryExecutor struct {
	mu      sync.Mutex
	actions []string
}

func (e *dryExecutor) dryRun() bool { return true }

func (e *dryExecutor) restore(ctx context.Context, t domain.RestoreTarget, pointInTime time.Time) error {
	e.note(fmt.Sprintf("restore %s to %s as of %s", t.Source(), t.DerivedName, pointInTime.Format(time.RFC3339)))
	zl := zerowrap.FromCtx(ctx)
	zl.Info().Str(logging.FieldTarget, t.DerivedName).Msg("dry run: would start restore")
	return nil
}

func (e *dryExecutor) delete(ctx context.Context, db domain.DatabaseRef) error {
	e.note(fmt.Sprintf("delete %s", db))
	zl := zerowrap.FromCtx(ctx)
	zl.Info().Str(logging.FieldTarget, db.Name).Msg("dry run: would delete database")
	return nil
}

func (e *dryExecutor) note(action string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.actions = append(e.actions, action)
}

func (e *dryExecutor) planned() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.actions...)
}
