// Package services exposes the read side of the data layout to the
// serving layer. Queries never recompute analytics; they return stored
// artifacts as-is. Absence is (nil, nil), mirroring the stores.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"districtpulse/internal/config"
	apperrors "districtpulse/internal/errors"
	"districtpulse/internal/files"
	"districtpulse/internal/snapshot"
	"districtpulse/internal/timeseries"
	"districtpulse/pkg/contracts/domain"
)

// DistrictService answers serving-layer queries from stored artifacts.
type DistrictService struct {
	store  *snapshot.Store
	index  *timeseries.Service
	paths  *config.Paths
	logger *slog.Logger
}

// NewDistrictService creates the read-side service.
func NewDistrictService(store *snapshot.Store, index *timeseries.Service, paths *config.Paths, logger *slog.Logger) *DistrictService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DistrictService{
		store:  store,
		index:  index,
		paths:  paths,
		logger: logger.With(slog.String("component", "district_service")),
	}
}

// DistrictList is the district listing for one snapshot.
type DistrictList struct {
	SnapshotID string   `json:"snapshot_id"`
	Districts  []string `json:"districts"`
}

// ListDistricts returns the districts of the latest successful snapshot.
// With no snapshot stored yet, the result is nil.
func (s *DistrictService) ListDistricts(ctx context.Context) (*DistrictList, error) {
	meta, err := s.store.GetLatestSuccessful(ctx)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}
	districts, err := s.store.ListDistricts(ctx, meta.ID)
	if err != nil {
		return nil, err
	}
	return &DistrictList{SnapshotID: meta.ID, Districts: districts}, nil
}

// GetAnalytics returns a district's stored artifact from the latest
// successful snapshot, or from snapshotID when non-empty.
func (s *DistrictService) GetAnalytics(ctx context.Context, districtID, snapshotID string) (*domain.DistrictAnalytics, error) {
	if err := snapshot.ValidateDistrictID(districtID); err != nil {
		return nil, err
	}
	if snapshotID == "" {
		meta, err := s.store.GetLatestSuccessful(ctx)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			return nil, nil
		}
		snapshotID = meta.ID
	}

	var artifact domain.DistrictAnalytics
	path := s.paths.ArtifactPath(snapshotID, districtID)
	if err := files.ReadJSON(path, &artifact); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.CorruptionError(path, err)
	}
	return &artifact, nil
}

// GetTrend returns a district's time-series points in [start, end].
func (s *DistrictService) GetTrend(ctx context.Context, districtID string, start, end time.Time) ([]domain.TimeSeriesDataPoint, error) {
	if err := snapshot.ValidateDistrictID(districtID); err != nil {
		return nil, err
	}
	return s.index.GetTrendData(ctx, districtID, start, end)
}

// GetProgramYearData returns one full program-year partition.
func (s *DistrictService) GetProgramYearData(ctx context.Context, districtID string, year domain.ProgramYear) ([]domain.TimeSeriesDataPoint, error) {
	if err := snapshot.ValidateDistrictID(districtID); err != nil {
		return nil, err
	}
	return s.index.GetProgramYearData(ctx, districtID, year)
}

// ListSnapshots returns snapshot metadata matching the filter.
func (s *DistrictService) ListSnapshots(ctx context.Context, filter snapshot.Filter) ([]domain.SnapshotMetadata, error) {
	return s.store.ListSnapshots(ctx, filter)
}

// GetSnapshot returns one snapshot's metadata, nil when absent.
func (s *DistrictService) GetSnapshot(ctx context.Context, snapshotID string) (*domain.SnapshotMetadata, error) {
	if err := snapshot.ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}
	return s.store.GetSnapshot(ctx, snapshotID)
}

// GetLatestSnapshot returns the newest complete or partial snapshot.
func (s *DistrictService) GetLatestSnapshot(ctx context.Context) (*domain.SnapshotMetadata, error) {
	return s.store.GetLatestSuccessful(ctx)
}

// DeleteResult summarizes a cascading snapshot delete.
type DeleteResult struct {
	Found              bool `json:"found"`
	TimeSeriesRemovals int  `json:"time_series_removals"`
}

// DeleteSnapshot removes one snapshot and cascades: its time-series
// entries are pruned from every partition and its artifact directory is
// dropped. Deleting an absent snapshot reports Found=false without error.
func (s *DistrictService) DeleteSnapshot(ctx context.Context, snapshotID string) (*DeleteResult, error) {
	if err := snapshot.ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}

	found, err := s.store.DeleteSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &DeleteResult{Found: false}, nil
	}

	removed, err := s.index.DeleteSnapshotEntries(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("prune time series for %s: %w", snapshotID, err)
	}

	if err := os.RemoveAll(s.paths.ArtifactDir(snapshotID)); err != nil {
		return nil, fmt.Errorf("remove artifacts for %s: %w", snapshotID, err)
	}

	s.logger.InfoContext(ctx, "snapshot deleted",
		slog.String("snapshot_id", snapshotID),
		slog.Int("time_series_removals", removed))
	return &DeleteResult{Found: true, TimeSeriesRemovals: removed}, nil
}
