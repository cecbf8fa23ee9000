package restore

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/testutils"
)

func window(name string, retention, checkedAgo time.Duration) RetentionWindow {
	checkedAt := testNow.Add(-checkedAgo)
	return RetentionWindow{
		Target:               name,
		EarliestRestorePoint: testNow.Add(-retention),
		LatestSafeInstant:    checkedAt.Add(-10 * time.Minute),
	}
}

func TestValidateRetention(t *testing.T) {
	day := 24 * time.Hour

	tests := []struct {
		name           string
		windows        []RetentionWindow
		instant        time.Time
		wantValid      bool
		wantAdjust     bool
		wantAdjustedTo time.Time
		wantInvalid    []string
	}{
		{
			name:      "inside every window",
			windows:   []RetentionWindow{window("a", 35*day, 0), window("b", 7*day, 0)},
			instant:   testNow.Add(-2 * day),
			wantValid: true,
		},
		{
			name:        "older than one window",
			windows:     []RetentionWindow{window("a", 35*day, 0), window("b", 7*day, 0)},
			instant:     testNow.Add(-10 * day),
			wantValid:   false,
			wantInvalid: []string{"b"},
		},
		{
			name:           "too recent clamps to latest safe instant",
			windows:        []RetentionWindow{window("a", 35*day, 0)},
			instant:        testNow.Add(-2 * time.Minute),
			wantValid:      true,
			wantAdjust:     true,
			wantAdjustedTo: testNow.Add(-10 * time.Minute),
		},
		{
			name: "clamp uses the minimum over all targets",
			windows: []RetentionWindow{
				window("a", 35*day, 0),
				window("b", 35*day, 3*time.Minute),
			},
			instant:        testNow.Add(-12 * time.Minute),
			wantValid:      true,
			wantAdjust:     true,
			wantAdjustedTo: testNow.Add(-13 * time.Minute),
		},
		{
			name: "clamped instant before a fresh window fails",
			windows: []RetentionWindow{
				window("a", 35*day, 0),
				{Target: "b", EarliestRestorePoint: testNow.Add(-5 * time.Minute), LatestSafeInstant: testNow.Add(-10 * time.Minute)},
			},
			instant:     testNow.Add(-time.Minute),
			wantValid:   false,
			wantInvalid: []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := ValidateRetention(tt.windows, tt.instant)

			assert.Equal(t, tt.wantValid, outcome.IsValid)
			assert.Equal(t, tt.wantAdjust, outcome.NeedsAdjustment)
			assert.Equal(t, tt.wantInvalid, outcome.InvalidTargets)
			if tt.wantAdjust {
				assert.Equal(t, tt.wantAdjustedTo, outcome.AdjustedInstant)
			}
		})
	}
}

func TestValidateRetention_AdjustedInstantPassesLowerBound(t *testing.T) {
	windows := []RetentionWindow{
		window("a", 35*24*time.Hour, 0),
		window("b", 7*24*time.Hour, time.Minute),
		window("c", 1*24*time.Hour, 2*time.Minute),
	}

	outcome := ValidateRetention(windows, testNow)
	require.True(t, outcome.IsValid)
	require.True(t, outcome.NeedsAdjustment)

	again := ValidateRetention(windows, outcome.AdjustedInstant)
	assert.True(t, again.IsValid)
	assert.False(t, again.NeedsAdjustment)
}

func TestValidateRetention_LowerBoundReportsRetentionDays(t *testing.T) {
	windows := []RetentionWindow{window("orders", 35*24*time.Hour, 0)}

	outcome := ValidateRetention(windows, testNow.Add(-40*24*time.Hour))
	require.False(t, outcome.IsValid)
	require.Len(t, outcome.Issues, 1)

	issue := outcome.Issues[0]
	assert.Equal(t, "orders", issue.Target)
	assert.Equal(t, domain.BoundLower, issue.Bound)
	assert.Equal(t, 35, issue.RetentionDays)

	err := retentionError(outcome)
	assert.ErrorIs(t, err, domain.ErrRestorePointTooOld)
	assert.Contains(t, err.Error(), "retention 35 days")
}

func TestService_FetchWindows_HonorsLimit(t *testing.T) {
	f := newFixture(t)

	var inFlight, peak atomic.Int32
	f.controlPlane.On("EarliestRestorePoint", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		}).
		Return(testNow.Add(-24*time.Hour), nil)

	targets := make([]domain.RestoreTarget, 4)
	for i := range targets {
		targets[i] = domain.RestoreTarget{BaseName: fmt.Sprintf("db-%d", i), Server: "sql-1", ResourceGroup: "rg", SubscriptionID: "sub"}
	}

	windows, err := f.svc.fetchWindows(testutils.TestContext(t), targets, 10*time.Minute, 1)
	require.NoError(t, err)

	require.Len(t, windows, 4)
	assert.Equal(t, "db-3", windows[3].Target)
	assert.Equal(t, int32(1), peak.Load())
	f.controlPlane.AssertNumberOfCalls(t, "EarliestRestorePoint", 4)
}
