// Package timeseries maintains append-only per-district indices
// partitioned by program year (July 1 – June 30). Appends to the same
// partition serialize on a partition-scoped lock; different partitions
// append independently. Every partition carries a point count used as an
// integrity check on read, recovered by recount when it drifts.
package timeseries

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"districtpulse/internal/closing"
	"districtpulse/internal/config"
	apperrors "districtpulse/internal/errors"
	"districtpulse/internal/files"
	"districtpulse/pkg/contracts/domain"
)

// Partition is the stored form of one (district, program year) index.
type Partition struct {
	DistrictID  string                       `json:"district_id"`
	ProgramYear string                       `json:"program_year"`
	PointCount  int                          `json:"point_count"`
	Points      []domain.TimeSeriesDataPoint `json:"points"`
}

// Service reads and writes time-series partitions.
type Service struct {
	paths  *config.Paths
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a time-series index service.
func NewService(paths *config.Paths, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		paths:  paths,
		logger: logger.With(slog.String("component", "timeseries_index")),
		locks:  make(map[string]*sync.Mutex),
	}
}

// partitionLock returns the mutex serializing writers of one partition.
func (s *Service) partitionLock(districtID string, year domain.ProgramYear) *sync.Mutex {
	key := districtID + "/" + year.Label()
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

func (s *Service) partitionPath(districtID string, year domain.ProgramYear) string {
	return filepath.Join(s.paths.PartitionDir(districtID), year.Label()+".json")
}

// AppendDataPoint adds one point to the partition its date falls in. A
// point carrying an already-present date replaces the stored one, keeping
// snapshot reruns idempotent. Points stay sorted by date.
func (s *Service) AppendDataPoint(ctx context.Context, districtID string, point domain.TimeSeriesDataPoint) error {
	date, err := time.Parse(closing.DateLayout, point.Date)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid data point date %q", point.Date))
	}
	year := domain.ProgramYearOf(date)

	lock := s.partitionLock(districtID, year)
	lock.Lock()
	defer lock.Unlock()

	part, err := s.loadPartition(ctx, districtID, year)
	if err != nil {
		return err
	}
	if part == nil {
		part = &Partition{DistrictID: districtID, ProgramYear: year.Label()}
	}

	replaced := false
	for i := range part.Points {
		if part.Points[i].Date == point.Date {
			part.Points[i] = point
			replaced = true
			break
		}
	}
	if !replaced {
		part.Points = append(part.Points, point)
		sort.Slice(part.Points, func(i, j int) bool {
			return part.Points[i].Date < part.Points[j].Date
		})
	}
	part.PointCount = len(part.Points)

	if err := s.writePartition(districtID, year, part); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "data point appended",
		slog.String("district_id", districtID),
		slog.String("program_year", year.Label()),
		slog.String("date", point.Date),
		slog.Bool("replaced", replaced))
	return nil
}

// GetProgramYearData returns one full partition, ordered by date. A
// missing partition yields an empty slice, not an error.
func (s *Service) GetProgramYearData(ctx context.Context, districtID string, year domain.ProgramYear) ([]domain.TimeSeriesDataPoint, error) {
	part, err := s.loadPartition(ctx, districtID, year)
	if err != nil {
		return nil, err
	}
	if part == nil {
		return nil, nil
	}
	return part.Points, nil
}

// GetTrendData returns all points in [start, end], crossing however many
// program-year partitions the range spans, ordered by date.
func (s *Service) GetTrendData(ctx context.Context, districtID string, start, end time.Time) ([]domain.TimeSeriesDataPoint, error) {
	if end.Before(start) {
		return nil, apperrors.NewValidationError("trend range end precedes start")
	}

	var out []domain.TimeSeriesDataPoint
	for year := domain.ProgramYearOf(start); year <= domain.ProgramYearOf(end); year++ {
		points, err := s.GetProgramYearData(ctx, districtID, year)
		if err != nil {
			return nil, err
		}
		for _, p := range points {
			if p.Date >= start.Format(closing.DateLayout) && p.Date <= end.Format(closing.DateLayout) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// DeleteSnapshotEntries removes every point tagged with snapshotID across
// all districts and partitions, returning the number removed. Supports
// the cascading delete of a snapshot.
func (s *Service) DeleteSnapshotEntries(ctx context.Context, snapshotID string) (int, error) {
	districts, err := s.districtDirs()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, districtID := range districts {
		years, err := s.partitionYears(districtID)
		if err != nil {
			return removed, err
		}
		for _, year := range years {
			n, err := s.deleteFromPartition(ctx, districtID, year, snapshotID)
			if err != nil {
				return removed, err
			}
			removed += n
		}
	}

	if removed > 0 {
		s.logger.InfoContext(ctx, "pruned time-series entries for deleted snapshot",
			slog.String("snapshot_id", snapshotID),
			slog.Int("removed", removed))
	}
	return removed, nil
}

func (s *Service) deleteFromPartition(ctx context.Context, districtID string, year domain.ProgramYear, snapshotID string) (int, error) {
	lock := s.partitionLock(districtID, year)
	lock.Lock()
	defer lock.Unlock()

	part, err := s.loadPartition(ctx, districtID, year)
	if err != nil || part == nil {
		return 0, err
	}

	kept := part.Points[:0]
	removed := 0
	for _, p := range part.Points {
		if p.SnapshotID == snapshotID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	if removed == 0 {
		return 0, nil
	}

	part.Points = kept
	part.PointCount = len(kept)
	if err := s.writePartition(districtID, year, part); err != nil {
		return 0, err
	}
	return removed, nil
}

// loadPartition reads one partition; (nil, nil) when absent. A point
// count disagreeing with the stored points is recovered by recount with a
// warning; undecodable content surfaces as corruption.
func (s *Service) loadPartition(ctx context.Context, districtID string, year domain.ProgramYear) (*Partition, error) {
	path := s.partitionPath(districtID, year)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.StorageError("load_partition", "", districtID, err)
	}

	var part Partition
	if err := json.Unmarshal(data, &part); err != nil {
		return nil, apperrors.CorruptionError(path, err)
	}
	if part.PointCount != len(part.Points) {
		s.logger.WarnContext(ctx, "partition point count mismatch, recounting",
			slog.String("path", path),
			slog.Int("recorded", part.PointCount),
			slog.Int("actual", len(part.Points)))
		part.PointCount = len(part.Points)
	}
	return &part, nil
}

func (s *Service) writePartition(districtID string, year domain.ProgramYear, part *Partition) error {
	dir := s.paths.PartitionDir(districtID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.StorageError("write_partition", "", districtID, err)
	}
	if err := files.WriteJSONAtomic(s.partitionPath(districtID, year), part); err != nil {
		return apperrors.StorageError("write_partition", "", districtID, err)
	}
	return nil
}

func (s *Service) districtDirs() ([]string, error) {
	entries, err := os.ReadDir(s.paths.TimeSeriesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.StorageError("list_timeseries", "", "", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Service) partitionYears(districtID string) ([]domain.ProgramYear, error) {
	entries, err := os.ReadDir(s.paths.PartitionDir(districtID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.StorageError("list_partitions", "", districtID, err)
	}
	var out []domain.ProgramYear
	for _, e := range entries {
		var startYear, endYear int
		if _, err := fmt.Sscanf(e.Name(), "%d-%d.json", &startYear, &endYear); err == nil {
			out = append(out, domain.ProgramYear(startYear))
		}
	}
	return out, nil
}
