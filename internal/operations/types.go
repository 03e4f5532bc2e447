package operations

import (
	"sync"
	"time"

	"districtpulse/internal/closing"
	"districtpulse/pkg/contracts/domain"
)

// RunStatus reflects how a pipeline run finished.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial"
	RunStatusFailed   RunStatus = "failed"
)

// DistrictInput is one district's parsed payload entering a run. CSV
// parsing happens upstream; by this point statistics are typed.
type DistrictInput struct {
	Statistics domain.DistrictStatistics
	Clubs      []domain.ClubRecord
}

// RunRequest describes one snapshot run.
type RunRequest struct {
	// CollectionDate is when the source was actually read. The resolve
	// stage may reattribute the snapshot to an earlier logical date.
	CollectionDate time.Time

	// Sidecar is the optional closing-period metadata written by the
	// collector. Nil means a regular snapshot.
	Sidecar *closing.PeriodMeta

	Districts []DistrictInput
}

// Run is the record of one pipeline execution.
type Run struct {
	ID          string                  `json:"id"`
	SnapshotID  string                  `json:"snapshot_id"`
	Status      RunStatus               `json:"status"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	Districts   []domain.DistrictResult `json:"districts"`
	Error       string                  `json:"error,omitempty"`
}

// RunState is the mutable state shared by the stages of one run. Stages
// execute sequentially; only the analytics stage fans out per district,
// and its workers synchronize on mu.
type RunState struct {
	Run     *Run
	Request RunRequest

	Resolution closing.Resolution
	Ranking    *domain.RankingArtifact

	mu        sync.Mutex
	Snapshots map[string]domain.DistrictSnapshot
	Analytics map[string]*domain.DistrictAnalytics
	failures  map[string]string
}

// NewRunState initializes the state for one run.
func NewRunState(run *Run, req RunRequest) *RunState {
	return &RunState{
		Run:       run,
		Request:   req,
		Snapshots: make(map[string]domain.DistrictSnapshot),
		Analytics: make(map[string]*domain.DistrictAnalytics),
		failures:  make(map[string]string),
	}
}

// RecordFailure marks one district as failed without aborting the run.
func (s *RunState) RecordFailure(districtID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[districtID] = err.Error()
}

// SetAnalytics stores one district's computed artifact.
func (s *RunState) SetAnalytics(districtID string, a *domain.DistrictAnalytics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Analytics[districtID] = a
}

// Failures returns a copy of the per-district failure map.
func (s *RunState) Failures() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.failures))
	for k, v := range s.failures {
		out[k] = v
	}
	return out
}

// Results assembles the per-district outcome list, ordered as requested.
func (s *RunState) Results() []domain.DistrictResult {
	failures := s.Failures()
	out := make([]domain.DistrictResult, 0, len(s.Request.Districts))
	for _, d := range s.Request.Districts {
		id := d.Statistics.DistrictID
		msg, failed := failures[id]
		out = append(out, domain.DistrictResult{
			DistrictID: id,
			OK:         !failed,
			Error:      msg,
		})
	}
	return out
}
