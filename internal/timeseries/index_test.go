package timeseries

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"districtpulse/internal/config"
	apperrors "districtpulse/internal/errors"
	"districtpulse/pkg/contracts/domain"
)

func testService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	paths, err := config.NewPaths(config.PathsConfig{DataDir: dir, LogsDir: filepath.Join(dir, "logs")})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return NewService(paths, nil)
}

func point(date, snapshotID string, clubs float64) domain.TimeSeriesDataPoint {
	return domain.TimeSeriesDataPoint{
		Date:       date,
		SnapshotID: snapshotID,
		MetricValues: map[string]float64{
			"total_clubs": clubs,
		},
	}
}

func TestAppendAndReadProgramYear(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-09-30", "snap-sep", 100)))
	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-08-31", "snap-aug", 98)))

	points, err := svc.GetProgramYearData(ctx, "42", domain.ProgramYear(2024))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2024-08-31", points[0].Date, "points stay sorted by date")
	assert.Equal(t, "2024-09-30", points[1].Date)
}

func TestAppendPartitionsByProgramYear(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	// June 30 belongs to the 2023-2024 program year, July 31 to 2024-2025.
	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-06-30", "snap-jun", 95)))
	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-07-31", "snap-jul", 97)))

	prior, err := svc.GetProgramYearData(ctx, "42", domain.ProgramYear(2023))
	require.NoError(t, err)
	require.Len(t, prior, 1)
	assert.Equal(t, "2024-06-30", prior[0].Date)

	current, err := svc.GetProgramYearData(ctx, "42", domain.ProgramYear(2024))
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "2024-07-31", current[0].Date)
}

func TestAppendSameDateReplaces(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-08-31", "snap-old", 90)))
	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-08-31", "snap-new", 92)))

	points, err := svc.GetProgramYearData(ctx, "42", domain.ProgramYear(2024))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "snap-new", points[0].SnapshotID)
	assert.Equal(t, float64(92), points[0].MetricValues["total_clubs"])
}

func TestAppendRejectsInvalidDate(t *testing.T) {
	svc := testService(t)

	err := svc.AppendDataPoint(context.Background(), "42", point("August 2024", "snap", 1))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetProgramYearDataAbsentPartition(t *testing.T) {
	svc := testService(t)

	points, err := svc.GetProgramYearData(context.Background(), "42", domain.ProgramYear(2019))
	require.NoError(t, err)
	assert.Nil(t, points)
}

func TestGetTrendDataSpansPartitions(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	dates := []string{"2024-05-31", "2024-06-30", "2024-07-31", "2024-08-31"}
	for _, d := range dates {
		require.NoError(t, svc.AppendDataPoint(ctx, "42", point(d, "snap-"+d, 1)))
	}

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)
	points, err := svc.GetTrendData(ctx, "42", start, end)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2024-06-30", points[0].Date)
	assert.Equal(t, "2024-07-31", points[1].Date)
}

func TestGetTrendDataRejectsInvertedRange(t *testing.T) {
	svc := testService(t)

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.GetTrendData(context.Background(), "42", start, end)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestDeleteSnapshotEntries(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	// Same snapshot feeds two districts across two program years.
	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-06-30", "snap-x", 1)))
	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-07-31", "snap-x", 2)))
	require.NoError(t, svc.AppendDataPoint(ctx, "7", point("2024-07-31", "snap-x", 3)))
	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-08-31", "snap-keep", 4)))

	removed, err := svc.DeleteSnapshotEntries(ctx, "snap-x")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	points, err := svc.GetProgramYearData(ctx, "42", domain.ProgramYear(2024))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "snap-keep", points[0].SnapshotID)

	removed, err = svc.DeleteSnapshotEntries(ctx, "snap-x")
	require.NoError(t, err)
	assert.Zero(t, removed, "second delete finds nothing")
}

func TestPointCountMismatchRecovers(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-08-31", "snap", 1)))

	path := svc.partitionPath("42", domain.ProgramYear(2024))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var part Partition
	require.NoError(t, json.Unmarshal(data, &part))
	part.PointCount = 99
	broken, err := json.Marshal(part)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, broken, 0644))

	points, err := svc.GetProgramYearData(ctx, "42", domain.ProgramYear(2024))
	require.NoError(t, err, "count drift recovers by recount")
	assert.Len(t, points, 1)
}

func TestCorruptPartitionSurfaces(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	require.NoError(t, svc.AppendDataPoint(ctx, "42", point("2024-08-31", "snap", 1)))

	path := svc.partitionPath("42", domain.ProgramYear(2024))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := svc.GetProgramYearData(ctx, "42", domain.ProgramYear(2024))
	require.Error(t, err)
	assert.True(t, apperrors.IsCorruption(err))
}

func TestConcurrentAppendsDistinctPartitions(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	districts := []string{"1", "2", "3", "4"}
	for _, id := range districts {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for month := 7; month <= 12; month++ {
				date := time.Date(2024, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
				p := point(date.Format("2006-01-02"), "snap-"+id, float64(month))
				assert.NoError(t, svc.AppendDataPoint(ctx, id, p))
			}
		}(id)
	}
	wg.Wait()

	for _, id := range districts {
		points, err := svc.GetProgramYearData(ctx, id, domain.ProgramYear(2024))
		require.NoError(t, err)
		assert.Len(t, points, 6)
	}
}

func TestPartitionFileLayout(t *testing.T) {
	svc := testService(t)
	require.NoError(t, svc.AppendDataPoint(context.Background(), "42", point("2024-08-31", "snap", 1)))

	path := filepath.Join(svc.paths.TimeSeriesDir, "42", "2024-2025.json")
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
