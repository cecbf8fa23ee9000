// Package clock provides the wall clock.
package clock

import (
	"context"
	"time"

	"github.com/bnema/envrefresh/internal/boundaries/out"
)

// Ensure Real implements out.Clock.
var _ out.Clock = Real{}

// Real reads the system clock and sleeps on timers.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
