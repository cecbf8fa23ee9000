package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bnema/envrefresh/internal/domain"
)

// Metrics holds the envrefresh metric instruments.
type Metrics struct {
	// Runs
	RunTotal    metric.Int64Counter
	RunDuration metric.Float64Histogram

	// Steps
	StepTotal    metric.Int64Counter
	StepDuration metric.Float64Histogram

	// Restore targets
	TargetTransitions metric.Int64Counter
	TargetDuration    metric.Float64Histogram
}

// NewMetrics creates the instruments on mp, or on the global provider when
// mp is nil. Without a configured provider every instrument is a no-op.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("envrefresh")
	m := &Metrics{}
	var err error

	if m.RunTotal, err = meter.Int64Counter("envrefresh.run.total",
		metric.WithDescription("Total refresh runs")); err != nil {
		return nil, err
	}
	if m.RunDuration, err = meter.Float64Histogram("envrefresh.run.duration_seconds",
		metric.WithDescription("Refresh run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(60, 300, 600, 1800, 3600, 7200, 14400)); err != nil {
		return nil, err
	}
	if m.StepTotal, err = meter.Int64Counter("envrefresh.step.total",
		metric.WithDescription("Total refresh steps by outcome")); err != nil {
		return nil, err
	}
	if m.StepDuration, err = meter.Float64Histogram("envrefresh.step.duration_seconds",
		metric.WithDescription("Refresh step duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.TargetTransitions, err = meter.Int64Counter("envrefresh.restore.target_transitions",
		metric.WithDescription("Restore target status transitions")); err != nil {
		return nil, err
	}
	if m.TargetDuration, err = meter.Float64Histogram("envrefresh.restore.target_duration_seconds",
		metric.WithDescription("Time for a restore target to reach a terminal status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(60, 300, 600, 1200, 1800, 3600, 7200)); err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveTargets returns a progress callback that counts target status
// transitions before forwarding them to next, which may be nil.
func (m *Metrics) ObserveTargets(next func(domain.RestoreTarget, domain.TargetStatus)) func(domain.RestoreTarget, domain.TargetStatus) {
	return func(target domain.RestoreTarget, status domain.TargetStatus) {
		m.TargetTransitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("status", string(status)),
			attribute.String("server", target.Server),
		))
		if next != nil {
			next(target, status)
		}
	}
}

// recordBatch records how long each target of a batch took.
func (m *Metrics) recordBatch(ctx context.Context, b *domain.BatchResult) {
	if b == nil {
		return
	}
	for _, t := range b.Targets {
		if !t.Status.IsTerminal() {
			continue
		}
		m.TargetDuration.Record(ctx, t.Elapsed.Seconds(), metric.WithAttributes(
			attribute.String("status", string(t.Status)),
			attribute.Bool("dry_run", b.DryRun),
		))
	}
}
