package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"districtpulse/internal/config"
	apperrors "districtpulse/internal/errors"
	"districtpulse/pkg/contracts/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	paths, err := config.NewPaths(config.PathsConfig{DataDir: dir, LogsDir: filepath.Join(dir, "logs")})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return NewStore(paths, nil)
}

func districtSnap(snapshotID, districtID string, members int) domain.DistrictSnapshot {
	return domain.DistrictSnapshot{
		SnapshotID: snapshotID,
		DistrictID: districtID,
		Statistics: domain.DistrictStatistics{
			DistrictID:   districtID,
			AsOfDate:     snapshotID,
			TotalMembers: members,
		},
	}
}

func metadata(id string, status domain.SnapshotStatus) domain.SnapshotMetadata {
	return domain.SnapshotMetadata{
		ID:        id,
		RunID:     "run-" + id,
		CreatedAt: time.Now().UTC(),
		Status:    status,
		Districts: []domain.DistrictResult{{DistrictID: "42", OK: true}},
	}
}

func TestEmptyStoreReturnsAbsence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	latest, err := s.GetLatestSuccessful(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	meta, err := s.GetSnapshot(ctx, "2025-06-30")
	require.NoError(t, err)
	assert.Nil(t, meta)

	snap, err := s.GetDistrict(ctx, "2025-06-30", "42")
	require.NoError(t, err)
	assert.Nil(t, snap)

	list, err := s.ListSnapshots(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWriteAndReadBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteMetadata(ctx, metadata("2025-06-30", domain.SnapshotComplete)))
	require.NoError(t, s.WriteDistrict(ctx, "2025-06-30", districtSnap("2025-06-30", "42", 1200)))

	meta, err := s.GetSnapshot(ctx, "2025-06-30")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, domain.SnapshotComplete, meta.Status)

	snap, err := s.GetDistrict(ctx, "2025-06-30", "42")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1200, snap.Statistics.TotalMembers)

	districts, err := s.ListDistricts(ctx, "2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, districts)
}

func TestWriteDistrictIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	snap := districtSnap("2025-06-30", "42", 1200)

	require.NoError(t, s.WriteDistrict(ctx, "2025-06-30", snap))
	first, err := os.ReadFile(filepath.Join(s.paths.SnapshotDir("2025-06-30"), "districts", "42.json"))
	require.NoError(t, err)

	require.NoError(t, s.WriteDistrict(ctx, "2025-06-30", snap))
	second, err := os.ReadFile(filepath.Join(s.paths.SnapshotDir("2025-06-30"), "districts", "42.json"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValidationRejectsDateShapedDistrictID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WriteDistrict(ctx, "2025-06-30", districtSnap("2025-06-30", "2025-06-30", 10))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = s.GetDistrict(ctx, "2025-06-30", "2024-01-15")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	err = s.WriteMetadata(ctx, metadata("not-a-date", domain.SnapshotComplete))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetLatestSuccessfulPrefersNewestServingSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteMetadata(ctx, metadata("2025-04-30", domain.SnapshotComplete)))
	require.NoError(t, s.WriteMetadata(ctx, metadata("2025-05-31", domain.SnapshotPartial)))
	require.NoError(t, s.WriteMetadata(ctx, metadata("2025-06-30", domain.SnapshotFailed)))

	latest, err := s.GetLatestSuccessful(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	// Failed snapshots never serve; partial ones do.
	assert.Equal(t, "2025-05-31", latest.ID)
}

func TestListSnapshotsFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteMetadata(ctx, metadata("2025-03-31", domain.SnapshotComplete)))
	require.NoError(t, s.WriteMetadata(ctx, metadata("2025-04-30", domain.SnapshotFailed)))
	require.NoError(t, s.WriteMetadata(ctx, metadata("2025-05-31", domain.SnapshotComplete)))

	all, err := s.ListSnapshots(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-03-31", all[0].ID)

	complete, err := s.ListSnapshots(ctx, Filter{Status: domain.SnapshotComplete})
	require.NoError(t, err)
	require.Len(t, complete, 2)

	ranged, err := s.ListSnapshots(ctx, Filter{From: "2025-04-01", To: "2025-05-31"})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "2025-04-30", ranged[0].ID)
}

func TestClosingPeriodOverwriteNewerWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored := metadata("2025-06-30", domain.SnapshotComplete)
	stored.ClosingPeriod = &domain.ClosingPeriodInfo{
		IsClosingPeriodData: true,
		DataMonth:           "2025-06",
		CollectionDate:      "2025-07-02",
		LogicalDate:         "2025-06-30",
	}
	require.NoError(t, s.WriteMetadata(ctx, stored))

	t.Run("older candidate skipped", func(t *testing.T) {
		older := stored
		older.ClosingPeriod = &domain.ClosingPeriodInfo{
			IsClosingPeriodData: true,
			CollectionDate:      "2025-07-01",
			LogicalDate:         "2025-06-30",
		}
		err := s.WriteMetadata(ctx, older)
		require.ErrorIs(t, err, apperrors.ErrStaleWrite)
	})

	t.Run("equal candidate skipped", func(t *testing.T) {
		equal := stored
		err := s.WriteMetadata(ctx, equal)
		require.ErrorIs(t, err, apperrors.ErrStaleWrite)
	})

	t.Run("non-closing candidate skipped", func(t *testing.T) {
		// A regular run collected on the month's last day carries its
		// logical date as collection date, which is always older than
		// the stored closing snapshot's collection date.
		plain := metadata("2025-06-30", domain.SnapshotComplete)
		err := s.WriteMetadata(ctx, plain)
		require.ErrorIs(t, err, apperrors.ErrStaleWrite)

		meta, err := s.GetSnapshot(ctx, "2025-06-30")
		require.NoError(t, err)
		require.NotNil(t, meta.ClosingPeriod)
		assert.Equal(t, "2025-07-02", meta.ClosingPeriod.CollectionDate)
	})

	t.Run("newer candidate overwrites", func(t *testing.T) {
		newer := stored
		newer.ClosingPeriod = &domain.ClosingPeriodInfo{
			IsClosingPeriodData: true,
			DataMonth:           "2025-06",
			CollectionDate:      "2025-07-03",
			LogicalDate:         "2025-06-30",
		}
		require.NoError(t, s.WriteMetadata(ctx, newer))

		meta, err := s.GetSnapshot(ctx, "2025-06-30")
		require.NoError(t, err)
		assert.Equal(t, "2025-07-03", meta.ClosingPeriod.CollectionDate)
	})
}

func TestDeleteSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteMetadata(ctx, metadata("2025-06-30", domain.SnapshotComplete)))
	require.NoError(t, s.WriteDistrict(ctx, "2025-06-30", districtSnap("2025-06-30", "42", 10)))

	deleted, err := s.DeleteSnapshot(ctx, "2025-06-30")
	require.NoError(t, err)
	assert.True(t, deleted)

	meta, err := s.GetSnapshot(ctx, "2025-06-30")
	require.NoError(t, err)
	assert.Nil(t, meta)

	deleted, err = s.DeleteSnapshot(ctx, "2025-06-30")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestLoadDistrictHistoryOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteDistrict(ctx, "2025-05-31", districtSnap("2025-05-31", "42", 1100)))
	require.NoError(t, s.WriteDistrict(ctx, "2025-03-31", districtSnap("2025-03-31", "42", 1000)))
	require.NoError(t, s.WriteDistrict(ctx, "2025-04-30", districtSnap("2025-04-30", "7", 500)))

	history, err := s.LoadDistrictHistory(ctx, "42")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2025-03-31", history[0].SnapshotID)
	assert.Equal(t, "2025-05-31", history[1].SnapshotID)
}

func TestCorruptMetadataSurfacesAsCorruption(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteMetadata(ctx, metadata("2025-06-30", domain.SnapshotComplete)))
	path := filepath.Join(s.paths.SnapshotDir("2025-06-30"), "metadata.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0644))

	_, err := s.GetSnapshot(ctx, "2025-06-30")
	require.Error(t, err)
	assert.True(t, apperrors.IsCorruption(err))

	// The latest-successful scan skips the corrupt entry instead of failing.
	latest, err := s.GetLatestSuccessful(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestValidateStatistics(t *testing.T) {
	ok := domain.DistrictStatistics{DistrictID: "42", AsOfDate: "2025-06-30", TotalMembers: 100}
	require.NoError(t, ValidateStatistics(ok))

	bad := ok
	bad.DistrictID = "2025-06-30"
	err := ValidateStatistics(bad)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	negative := ok
	negative.TotalMembers = -1
	require.Error(t, ValidateStatistics(negative))
}
