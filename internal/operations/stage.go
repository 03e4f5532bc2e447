package operations

import "context"

// Stage is one sequential phase of a pipeline run. A stage error aborts
// the run; per-district problems are recorded on the state instead so the
// run can finish partial.
type Stage interface {
	// ID returns the stable identifier used in logs, spans, and
	// progress updates.
	ID() string

	// Name returns the human-readable stage name.
	Name() string

	// Execute runs the stage against the shared run state.
	Execute(ctx context.Context, state *RunState) error
}

const (
	StageResolve   = "resolve"
	StageRanking   = "ranking"
	StageAnalytics = "analytics"
	StagePersist   = "persist"
)
