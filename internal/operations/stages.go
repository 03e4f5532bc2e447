package operations

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"districtpulse/internal/analytics"
	"districtpulse/internal/closing"
	"districtpulse/internal/config"
	apperrors "districtpulse/internal/errors"
	"districtpulse/internal/files"
	"districtpulse/internal/ranking"
	"districtpulse/internal/snapshot"
	"districtpulse/internal/timeseries"
	"districtpulse/pkg/contracts/domain"
)

// resolveStage runs closing-period detection and validates every
// district's statistics. Invalid districts are recorded as failures and
// excluded from the rest of the run.
type resolveStage struct {
	detector *closing.Detector
	logger   *slog.Logger
}

func (s *resolveStage) ID() string   { return StageResolve }
func (s *resolveStage) Name() string { return "Resolve snapshot date" }

func (s *resolveStage) Execute(ctx context.Context, state *RunState) error {
	state.Resolution = s.detector.Detect(state.Request.CollectionDate, state.Request.Sidecar)
	state.Run.SnapshotID = state.Resolution.SnapshotDate

	if state.Resolution.IsClosingPeriod {
		s.logger.InfoContext(ctx, "closing period detected, reattributing snapshot date",
			slog.String("collection_date", state.Resolution.CollectionDate),
			slog.String("snapshot_date", state.Resolution.SnapshotDate),
			slog.String("data_month", state.Resolution.DataMonth))
	}

	for _, input := range state.Request.Districts {
		stats := input.Statistics
		if err := snapshot.ValidateStatistics(stats); err != nil {
			state.RecordFailure(stats.DistrictID, err)
			s.logger.WarnContext(ctx, "district rejected by validation",
				slog.String("district_id", stats.DistrictID),
				slog.String("error", err.Error()))
			continue
		}
		state.Snapshots[stats.DistrictID] = domain.DistrictSnapshot{
			SnapshotID: state.Resolution.SnapshotDate,
			DistrictID: stats.DistrictID,
			Statistics: stats,
			Clubs:      input.Clubs,
		}
	}

	if len(state.Snapshots) == 0 {
		return fmt.Errorf("no valid districts in run %s", state.Run.ID)
	}
	return nil
}

// rankingStage computes the all-districts ranking artifact. Every
// analytics consumer waits behind this stage.
type rankingStage struct {
	calculator *ranking.Calculator
}

func (s *rankingStage) ID() string   { return StageRanking }
func (s *rankingStage) Name() string { return "Rank districts" }

func (s *rankingStage) Execute(ctx context.Context, state *RunState) error {
	stats := make([]domain.DistrictStatistics, 0, len(state.Snapshots))
	for _, snap := range state.Snapshots {
		stats = append(stats, snap.Statistics)
	}

	artifact, err := s.calculator.Calculate(ctx, state.Run.SnapshotID, stats)
	if err != nil {
		return fmt.Errorf("compute ranking: %w", err)
	}
	state.Ranking = artifact
	return nil
}

// analyticsStage computes per-district analytics in parallel. Each worker
// reads the district's stored history plus the in-flight snapshot; a
// per-district failure is recorded, never fatal.
type analyticsStage struct {
	computer       *analytics.Computer
	store          *snapshot.Store
	sink           ProgressSink
	maxConcurrency int
	logger         *slog.Logger
}

func (s *analyticsStage) ID() string   { return StageAnalytics }
func (s *analyticsStage) Name() string { return "Compute analytics" }

func (s *analyticsStage) Execute(ctx context.Context, state *RunState) error {
	ids := make([]string, 0, len(state.Snapshots))
	for id := range state.Snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	done := 0
	total := len(ids)
	for _, id := range ids {
		districtID := id
		current := state.Snapshots[districtID]
		g.Go(func() error {
			history, err := s.store.LoadDistrictHistory(gctx, districtID)
			if err != nil {
				state.RecordFailure(districtID, err)
				return nil
			}
			history = withCurrent(history, current)

			result, err := s.computer.Compute(gctx, districtID, history, current.SnapshotID, state.Ranking)
			if err != nil {
				state.RecordFailure(districtID, err)
				return nil
			}
			state.SetAnalytics(districtID, result)

			state.mu.Lock()
			done++
			progress := done
			state.mu.Unlock()
			s.sink.BroadcastProgress(progressEvent(
				state.Run.ID, StageAnalytics, "active", progress, total, districtID))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(state.Analytics) == 0 {
		return fmt.Errorf("analytics failed for every district in run %s", state.Run.ID)
	}
	return nil
}

// withCurrent merges the in-flight snapshot into the stored history,
// replacing a stored snapshot at the same logical date so reruns compare
// against fresh data. The result stays date-ordered even when the run
// replays a date older than stored history.
func withCurrent(history []domain.DistrictSnapshot, current domain.DistrictSnapshot) []domain.DistrictSnapshot {
	for i := range history {
		if history[i].SnapshotID == current.SnapshotID {
			history[i] = current
			return history
		}
	}
	history = append(history, current)
	sort.Slice(history, func(i, j int) bool {
		return history[i].SnapshotID < history[j].SnapshotID
	})
	return history
}

// persistStage writes the snapshot, per-district analytics artifacts, and
// time-series appends. A stale-write skip on closing-period metadata is
// logged and the run continues.
type persistStage struct {
	store  *snapshot.Store
	index  *timeseries.Service
	paths  *config.Paths
	logger *slog.Logger
}

func (s *persistStage) ID() string   { return StagePersist }
func (s *persistStage) Name() string { return "Persist results" }

func (s *persistStage) Execute(ctx context.Context, state *RunState) error {
	meta := domain.SnapshotMetadata{
		ID:        state.Run.SnapshotID,
		RunID:     state.Run.ID,
		CreatedAt: state.Run.StartedAt,
	}
	if state.Resolution.IsClosingPeriod {
		meta.ClosingPeriod = &domain.ClosingPeriodInfo{
			IsClosingPeriodData: true,
			DataMonth:           state.Resolution.DataMonth,
			CollectionDate:      state.Resolution.CollectionDate,
			LogicalDate:         state.Resolution.SnapshotDate,
		}
	}

	// A stale closing-period rerun is skipped wholesale, before any
	// district file is touched. Stored data stays the newer copy.
	stale, err := s.store.StaleClosingWrite(ctx, meta)
	if err != nil {
		return fmt.Errorf("check stored snapshot: %w", err)
	}
	if stale {
		s.logger.InfoContext(ctx, "stale closing-period rerun skipped",
			slog.String("snapshot_id", meta.ID),
			slog.String("collection_date", state.Resolution.CollectionDate))
		return nil
	}

	failed := state.Failures()
	for id, snap := range state.Snapshots {
		if _, skip := failed[id]; skip {
			continue
		}
		if err := s.store.WriteDistrict(ctx, state.Run.SnapshotID, snap); err != nil {
			state.RecordFailure(id, err)
			continue
		}
		if err := s.writeArtifact(state, id); err != nil {
			state.RecordFailure(id, err)
			continue
		}
		if err := s.appendDataPoint(ctx, state, snap); err != nil {
			state.RecordFailure(id, err)
		}
	}

	// Metadata lands last so a snapshot only becomes visible once its
	// district files are in place.
	meta.Status = snapshotStatus(state)
	meta.Districts = state.Results()
	if err := s.store.WriteMetadata(ctx, meta); err != nil && !apperrors.IsStaleWrite(err) {
		return fmt.Errorf("write snapshot metadata: %w", err)
	}
	return nil
}

func (s *persistStage) writeArtifact(state *RunState, districtID string) error {
	artifact, ok := state.Analytics[districtID]
	if !ok {
		return fmt.Errorf("no analytics artifact for district %s", districtID)
	}
	path := s.paths.ArtifactPath(state.Run.SnapshotID, districtID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	return files.WriteJSONAtomic(path, artifact)
}

func (s *persistStage) appendDataPoint(ctx context.Context, state *RunState, snap domain.DistrictSnapshot) error {
	stats := snap.Statistics
	return s.index.AppendDataPoint(ctx, snap.DistrictID, domain.TimeSeriesDataPoint{
		Date:       state.Run.SnapshotID,
		SnapshotID: state.Run.SnapshotID,
		MetricValues: map[string]float64{
			"total_clubs":         float64(stats.TotalClubs),
			"paid_clubs":          float64(stats.PaidClubs),
			"total_members":       float64(stats.TotalMembers),
			"total_payments":      float64(stats.TotalPayments),
			"distinguished_clubs": float64(stats.DistinguishedClubs),
		},
	})
}

func snapshotStatus(state *RunState) domain.SnapshotStatus {
	failures := len(state.Failures())
	switch {
	case failures == 0:
		return domain.SnapshotComplete
	case failures < len(state.Request.Districts):
		return domain.SnapshotPartial
	default:
		return domain.SnapshotFailed
	}
}
