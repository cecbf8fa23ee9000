package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/testutils"
)

type stubDetector struct {
	detected Detected
	err      error
	calls    int
}

func (d *stubDetector) Detect(context.Context, domain.RefreshParams) (Detected, error) {
	d.calls++
	return d.detected, d.err
}

func intPtr(v int) *int { return &v }

func TestMergeParams_Priority(t *testing.T) {
	defaults := DefaultDefaults()
	detected := Detected{Timezone: "Europe/Berlin", Product: "acme", DestinationNamespace: "tenant-a"}

	tests := []struct {
		name     string
		explicit domain.RefreshParams
		detected Detected
		check    func(t *testing.T, p domain.RefreshParams)
	}{
		{
			name:     "explicit wins over detected",
			explicit: domain.RefreshParams{Timezone: "America/New_York", Product: "globex", Destination: domain.EnvironmentRef{Name: "qa", Namespace: "tenant-b"}},
			detected: detected,
			check: func(t *testing.T, p domain.RefreshParams) {
				assert.Equal(t, "America/New_York", p.Timezone)
				assert.Equal(t, "globex", p.Product)
				assert.Equal(t, "tenant-b", p.Destination.Namespace)
			},
		},
		{
			name:     "detected fills unset fields",
			explicit: domain.RefreshParams{Destination: domain.EnvironmentRef{Name: "qa"}},
			detected: detected,
			check: func(t *testing.T, p domain.RefreshParams) {
				assert.Equal(t, "Europe/Berlin", p.Timezone)
				assert.Equal(t, "acme", p.Product)
				assert.Equal(t, "tenant-a", p.Destination.Namespace)
			},
		},
		{
			name:     "defaults fill the rest",
			explicit: domain.RefreshParams{},
			check: func(t *testing.T, p domain.RefreshParams) {
				assert.Equal(t, "UTC", p.Timezone)
				assert.Empty(t, p.Product)
				require.NotNil(t, p.MaxWaitMinutes)
				assert.Equal(t, 60, *p.MaxWaitMinutes)
				require.NotNil(t, p.ThrottleLimit)
				assert.Equal(t, 10, *p.ThrottleLimit)
				require.NotNil(t, p.PropagationDelay)
				assert.Equal(t, 10*time.Minute, *p.PropagationDelay)
			},
		},
		{
			name:     "explicit tunables kept",
			explicit: domain.RefreshParams{MaxWaitMinutes: intPtr(90), ThrottleLimit: intPtr(5)},
			check: func(t *testing.T, p domain.RefreshParams) {
				assert.Equal(t, 90, *p.MaxWaitMinutes)
				assert.Equal(t, 5, *p.ThrottleLimit)
				assert.Equal(t, 90*time.Minute, p.MaxWait())
				assert.Equal(t, 5, p.Concurrency())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, MergeParams(tt.explicit, tt.detected, defaults))
		})
	}
}

func TestResolveParams_DetectorOnlyForUnsetFields(t *testing.T) {
	ctx := testutils.TestContext(t)
	detector := &stubDetector{detected: Detected{Timezone: "Europe/Berlin"}}

	full := domain.RefreshParams{Timezone: "UTC", Product: "acme", Destination: domain.EnvironmentRef{Name: "qa", Namespace: "t"}}
	p := ResolveParams(ctx, full, detector, DefaultDefaults())
	assert.Equal(t, 0, detector.calls)
	assert.Equal(t, "UTC", p.Timezone)

	p = ResolveParams(ctx, domain.RefreshParams{Product: "acme"}, detector, DefaultDefaults())
	assert.Equal(t, 1, detector.calls)
	assert.Equal(t, "Europe/Berlin", p.Timezone)
}

func TestResolveParams_DetectionErrorKeepsPartialValues(t *testing.T) {
	detector := &stubDetector{detected: Detected{Timezone: "Europe/Paris"}, err: errors.New("directory down")}

	p := ResolveParams(testutils.TestContext(t), domain.RefreshParams{}, detector, DefaultDefaults())
	assert.Equal(t, "Europe/Paris", p.Timezone)
	assert.Empty(t, p.Product)
}

func TestValidateParams(t *testing.T) {
	valid := domain.RefreshParams{
		Source:          domain.EnvironmentRef{Name: "prod"},
		Destination:     domain.EnvironmentRef{Name: "staging"},
		RestoreDateTime: "2026-10-18 03:00",
	}
	require.NoError(t, ValidateParams(valid, true))

	tests := []struct {
		name   string
		mutate func(p *domain.RefreshParams)
		want   string
	}{
		{"missing source", func(p *domain.RefreshParams) { p.Source = domain.EnvironmentRef{} }, "Source is required"},
		{"missing destination", func(p *domain.RefreshParams) { p.Destination = domain.EnvironmentRef{} }, "Destination is required"},
		{"same environment", func(p *domain.RefreshParams) { p.Destination = domain.EnvironmentRef{Name: "PROD"} }, "must differ"},
		{"missing restore point", func(p *domain.RefreshParams) { p.RestoreDateTime = " " }, "RestoreDateTime is required"},
		{"zero wait", func(p *domain.RefreshParams) { p.MaxWaitMinutes = intPtr(0) }, "MaxWaitMinutes"},
		{"negative throttle", func(p *domain.RefreshParams) { p.ThrottleLimit = intPtr(-1) }, "ThrottleLimit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := ValidateParams(p, true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, domain.CategoryPrerequisite, domain.CategoryOf(err))
		})
	}
}

func TestValidateParams_SameNameDifferentNamespace(t *testing.T) {
	p := domain.RefreshParams{
		Source:      domain.EnvironmentRef{Name: "prod", Namespace: "tenant-a"},
		Destination: domain.EnvironmentRef{Name: "prod", Namespace: "tenant-b"},
	}
	assert.NoError(t, ValidateParams(p, false))
}
