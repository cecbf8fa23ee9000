package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/bnema/envrefresh/internal/boundaries/in"
	"github.com/bnema/envrefresh/internal/domain"
)

// Workflow decorates a workflow service with a span per run and run, step
// and target metrics.
type Workflow struct {
	next    in.WorkflowService
	metrics *Metrics
	tracer  trace.Tracer
}

// NewWorkflow wraps next. tp may be nil to use the global tracer provider.
func NewWorkflow(next in.WorkflowService, metrics *Metrics, tp trace.TracerProvider) *Workflow {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Workflow{next: next, metrics: metrics, tracer: tp.Tracer("envrefresh")}
}

// Run implements in.WorkflowService.
func (w *Workflow) Run(ctx context.Context, steps []domain.StepDefinition, params domain.RefreshParams, skip map[domain.StepID]bool) *domain.WorkflowRun {
	ctx, span := w.tracer.Start(ctx, "envrefresh.refresh", trace.WithAttributes(
		attribute.String("envrefresh.source", params.Source.String()),
		attribute.String("envrefresh.destination", params.Destination.String()),
		attribute.String("envrefresh.product", params.Product),
		attribute.Bool("envrefresh.dry_run", params.DryRun),
	))
	defer span.End()

	start := time.Now()
	run := w.next.Run(ctx, steps, params, skip)

	span.SetAttributes(
		attribute.String("envrefresh.run_id", run.RunID),
		attribute.Int("envrefresh.exit_code", run.ExitCode),
	)
	for _, s := range run.Steps {
		span.AddEvent("step", trace.WithAttributes(
			attribute.String("step.id", string(s.ID)),
			attribute.String("step.outcome", string(s.Outcome)),
		))
		stepAttrs := metric.WithAttributes(
			attribute.String("step", string(s.ID)),
			attribute.String("outcome", string(s.Outcome)),
		)
		w.metrics.StepTotal.Add(ctx, 1, stepAttrs)
		w.metrics.StepDuration.Record(ctx, s.Elapsed.Seconds(), stepAttrs)
		w.metrics.recordBatch(ctx, s.Batch)
	}

	switch {
	case run.FatalErr != nil:
		span.RecordError(run.FatalErr)
		span.SetStatus(codes.Error, run.FatalErr.Error())
	case !run.Success:
		span.SetStatus(codes.Error, "one or more steps failed")
	default:
		span.SetStatus(codes.Ok, "")
	}

	runAttrs := metric.WithAttributes(
		attribute.String("outcome", runOutcome(run)),
		attribute.Bool("dry_run", run.DryRun),
	)
	w.metrics.RunTotal.Add(ctx, 1, runAttrs)
	w.metrics.RunDuration.Record(ctx, time.Since(start).Seconds(), runAttrs)

	return run
}

func runOutcome(run *domain.WorkflowRun) string {
	switch {
	case run.Aborted:
		return "aborted"
	case run.Success:
		return "succeeded"
	default:
		return "failed"
	}
}
