package ratelimit

import (
	"context"
	"time"

	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
)

// Ensure ThrottledControlPlane implements out.DatabaseControlPlane.
var _ out.DatabaseControlPlane = (*ThrottledControlPlane)(nil)

// ThrottledControlPlane waits on a per-subscription limiter before every
// call to the wrapped control plane.
type ThrottledControlPlane struct {
	next    out.DatabaseControlPlane
	limiter out.RateLimiter
}

// NewThrottledControlPlane wraps next with limiter.
func NewThrottledControlPlane(next out.DatabaseControlPlane, limiter out.RateLimiter) *ThrottledControlPlane {
	return &ThrottledControlPlane{next: next, limiter: limiter}
}

func key(db domain.DatabaseRef) string {
	return "subscription:" + db.SubscriptionID
}

func (t *ThrottledControlPlane) RestoreAsync(ctx context.Context, source domain.DatabaseRef, destName string, pointInTime time.Time) error {
	if err := t.limiter.Wait(ctx, key(source)); err != nil {
		return err
	}
	return t.next.RestoreAsync(ctx, source, destName, pointInTime)
}

func (t *ThrottledControlPlane) GetStatus(ctx context.Context, db domain.DatabaseRef) (domain.DatabaseStatus, error) {
	if err := t.limiter.Wait(ctx, key(db)); err != nil {
		return domain.DatabaseUnknown, err
	}
	return t.next.GetStatus(ctx, db)
}

func (t *ThrottledControlPlane) QueryState(ctx context.Context, db domain.DatabaseRef) (domain.DatabaseStatus, error) {
	if err := t.limiter.Wait(ctx, key(db)); err != nil {
		return domain.DatabaseUnknown, err
	}
	return t.next.QueryState(ctx, db)
}

func (t *ThrottledControlPlane) EarliestRestorePoint(ctx context.Context, db domain.DatabaseRef) (time.Time, error) {
	if err := t.limiter.Wait(ctx, key(db)); err != nil {
		return time.Time{}, err
	}
	return t.next.EarliestRestorePoint(ctx, db)
}

func (t *ThrottledControlPlane) ListDatabases(ctx context.Context, server domain.DatabaseRef) ([]string, error) {
	if err := t.limiter.Wait(ctx, key(server)); err != nil {
		return nil, err
	}
	return t.next.ListDatabases(ctx, server)
}

func (t *ThrottledControlPlane) Delete(ctx context.Context, db domain.DatabaseRef) error {
	if err := t.limiter.Wait(ctx, key(db)); err != nil {
		return err
	}
	return t.next.Delete(ctx, db)
}
