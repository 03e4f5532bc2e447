package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"districtpulse/internal/infrastructure"
)

const tracerName = "districtpulse.operations"

// RunTracer instruments pipeline runs with spans and counters.
type RunTracer struct {
	tracer trace.Tracer

	runsTotal          metric.Int64Counter
	runDuration        metric.Float64Histogram
	districtsProcessed metric.Int64Counter
	districtFailures   metric.Int64Counter
}

// NewRunTracer builds a tracer from the configured providers. A nil
// providers argument yields a fully no-op tracer.
func NewRunTracer(providers *infrastructure.OTelProviders) (*RunTracer, error) {
	if providers == nil {
		return &RunTracer{tracer: tracenoop.NewTracerProvider().Tracer(tracerName)}, nil
	}

	meter := providers.Meter
	runsTotal, err := meter.Int64Counter("pipeline_runs_total",
		metric.WithDescription("Pipeline runs by final status"))
	if err != nil {
		return nil, fmt.Errorf("create runs counter: %w", err)
	}
	runDuration, err := meter.Float64Histogram("pipeline_run_duration_seconds",
		metric.WithDescription("Pipeline run wall time"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	districtsProcessed, err := meter.Int64Counter("pipeline_districts_processed_total",
		metric.WithDescription("Districts successfully processed"))
	if err != nil {
		return nil, fmt.Errorf("create districts counter: %w", err)
	}
	districtFailures, err := meter.Int64Counter("pipeline_district_failures_total",
		metric.WithDescription("Districts failed during a run"))
	if err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}

	return &RunTracer{
		tracer:             providers.Tracer,
		runsTotal:          runsTotal,
		runDuration:        runDuration,
		districtsProcessed: districtsProcessed,
		districtFailures:   districtFailures,
	}, nil
}

// StartRun opens the root span for one run.
func (t *RunTracer) StartRun(ctx context.Context, runID string, districts int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.districts", districts),
		))
}

// StartStage opens a span for one stage inside a run.
func (t *RunTracer) StartStage(ctx context.Context, runID, stageID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.stage."+stageID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage.id", stageID),
		))
}

// RecordCompletion closes out the run span and records final metrics.
func (t *RunTracer) RecordCompletion(ctx context.Context, span trace.Span, run *Run, duration time.Duration) {
	span.SetAttributes(
		attribute.String("run.status", string(run.Status)),
		attribute.Float64("run.duration_seconds", duration.Seconds()),
	)
	if run.Status == RunStatusFailed {
		span.SetStatus(codes.Error, run.Error)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if t.runsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", string(run.Status)))
	t.runsTotal.Add(ctx, 1, attrs)
	t.runDuration.Record(ctx, duration.Seconds(), attrs)

	var ok, failed int64
	for _, d := range run.Districts {
		if d.OK {
			ok++
		} else {
			failed++
		}
	}
	if ok > 0 {
		t.districtsProcessed.Add(ctx, ok)
	}
	if failed > 0 {
		t.districtFailures.Add(ctx, failed)
	}
}
