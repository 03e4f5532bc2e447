package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"districtpulse/internal/analytics"
	"districtpulse/internal/closing"
	"districtpulse/internal/config"
	"districtpulse/internal/ranking"
	"districtpulse/internal/snapshot"
	"districtpulse/internal/timeseries"
)

// Manager executes snapshot pipeline runs. Runs are synchronous and
// CPU-bound; the orchestration layer guarantees one run at a time per
// logical date.
type Manager struct {
	stages []Stage
	tracer *RunTracer
	sink   ProgressSink
	logger *slog.Logger
}

// ManagerDeps bundles the collaborators a Manager needs.
type ManagerDeps struct {
	Store    *snapshot.Store
	Index    *timeseries.Service
	Detector *closing.Detector
	Ranker   *ranking.Calculator
	Computer *analytics.Computer
	Paths    *config.Paths
	Tracer   *RunTracer
	Sink     ProgressSink
	Logger   *slog.Logger

	// MaxConcurrency caps parallel per-district analytics workers.
	MaxConcurrency int
}

// NewManager wires the four pipeline stages.
func NewManager(deps ManagerDeps) (*Manager, error) {
	if deps.Store == nil || deps.Index == nil || deps.Paths == nil {
		return nil, fmt.Errorf("manager requires store, index, and paths")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "pipeline_manager"))

	if deps.Detector == nil {
		deps.Detector = closing.NewDetector(logger)
	}
	if deps.Ranker == nil {
		deps.Ranker = ranking.NewCalculator(logger)
	}
	if deps.Computer == nil {
		deps.Computer = analytics.NewComputer(logger)
	}
	if deps.Tracer == nil {
		tracer, err := NewRunTracer(nil)
		if err != nil {
			return nil, err
		}
		deps.Tracer = tracer
	}
	sink := deps.Sink
	if sink == nil {
		sink = nopSink{}
	}
	if deps.MaxConcurrency <= 0 {
		deps.MaxConcurrency = 4
	}

	return &Manager{
		stages: []Stage{
			&resolveStage{detector: deps.Detector, logger: logger},
			&rankingStage{calculator: deps.Ranker},
			&analyticsStage{
				computer:       deps.Computer,
				store:          deps.Store,
				sink:           sink,
				maxConcurrency: deps.MaxConcurrency,
				logger:         logger,
			},
			&persistStage{
				store:  deps.Store,
				index:  deps.Index,
				paths:  deps.Paths,
				logger: logger,
			},
		},
		tracer: deps.Tracer,
		sink:   sink,
		logger: logger,
	}, nil
}

// Execute runs the full pipeline for one request. The returned Run always
// carries per-district outcomes; the error is non-nil only when the run
// failed outright.
func (m *Manager) Execute(ctx context.Context, req RunRequest) (*Run, error) {
	if len(req.Districts) == 0 {
		return nil, fmt.Errorf("run request carries no districts")
	}

	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
	state := NewRunState(run, req)

	ctx, span := m.tracer.StartRun(ctx, run.ID, len(req.Districts))
	defer span.End()

	m.logger.InfoContext(ctx, "pipeline run started",
		slog.String("run_id", run.ID),
		slog.Time("collection_date", req.CollectionDate),
		slog.Int("districts", len(req.Districts)))

	var runErr error
	for _, stage := range m.stages {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := m.executeStage(ctx, stage, state); err != nil {
			runErr = fmt.Errorf("stage %s: %w", stage.ID(), err)
			break
		}
	}

	m.finalize(ctx, span, state, runErr)
	if run.Status == RunStatusFailed {
		return run, fmt.Errorf("run %s failed: %s", run.ID, run.Error)
	}
	return run, nil
}

func (m *Manager) executeStage(ctx context.Context, stage Stage, state *RunState) error {
	ctx, span := m.tracer.StartStage(ctx, state.Run.ID, stage.ID())
	defer span.End()

	m.sink.BroadcastProgress(progressEvent(state.Run.ID, stage.ID(), "started", 0, 0, stage.Name()))
	start := time.Now()

	err := stage.Execute(ctx, state)

	status := "completed"
	if err != nil {
		status = "failed"
	}
	m.sink.BroadcastProgress(progressEvent(state.Run.ID, stage.ID(), status, 0, 0, stage.Name()))
	m.logger.InfoContext(ctx, "pipeline stage finished",
		slog.String("run_id", state.Run.ID),
		slog.String("stage", stage.ID()),
		slog.String("status", status),
		slog.Duration("duration", time.Since(start)))
	return err
}

func (m *Manager) finalize(ctx context.Context, span trace.Span, state *RunState, runErr error) {
	run := state.Run
	now := time.Now()
	run.CompletedAt = &now
	run.Districts = state.Results()

	failures := len(state.Failures())
	switch {
	case runErr != nil:
		run.Status = RunStatusFailed
		run.Error = runErr.Error()
	case failures == 0:
		run.Status = RunStatusComplete
	default:
		run.Status = RunStatusPartial
	}

	m.tracer.RecordCompletion(ctx, span, run, now.Sub(run.StartedAt))
	m.logger.InfoContext(ctx, "pipeline run finished",
		slog.String("run_id", run.ID),
		slog.String("snapshot_id", run.SnapshotID),
		slog.String("status", string(run.Status)),
		slog.Int("failed_districts", failures),
		slog.Duration("duration", now.Sub(run.StartedAt)))
}
