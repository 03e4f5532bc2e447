package closing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDetectRegularSnapshot(t *testing.T) {
	d := NewDetector(nil)

	res := d.Detect(date(2025, 3, 14), nil)

	assert.Equal(t, "2025-03-14", res.SnapshotDate)
	assert.Equal(t, "2025-03-14", res.CollectionDate)
	assert.False(t, res.IsClosingPeriod)
}

func TestDetectClosingPeriod(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name           string
		collectionDate time.Time
		meta           PeriodMeta
		wantDate       string
		wantMonth      string
	}{
		{
			name:           "normalized month",
			collectionDate: date(2025, 7, 3),
			meta:           PeriodMeta{IsClosingPeriod: true, DataMonth: "2025-06"},
			wantDate:       "2025-06-30",
			wantMonth:      "2025-06",
		},
		{
			name:           "month name same year",
			collectionDate: date(2025, 5, 2),
			meta:           PeriodMeta{IsClosingPeriod: true, DataMonth: "April"},
			wantDate:       "2025-04-30",
			wantMonth:      "2025-04",
		},
		{
			name:           "december data collected in january rolls back a year",
			collectionDate: date(2025, 1, 4),
			meta:           PeriodMeta{IsClosingPeriod: true, DataMonth: "December"},
			wantDate:       "2024-12-31",
			wantMonth:      "2024-12",
		},
		{
			name:           "explicit december month with january collection",
			collectionDate: date(2025, 1, 2),
			meta:           PeriodMeta{IsClosingPeriod: true, DataMonth: "2024-12"},
			wantDate:       "2024-12-31",
			wantMonth:      "2024-12",
		},
		{
			name:           "leap february",
			collectionDate: date(2024, 3, 1),
			meta:           PeriodMeta{IsClosingPeriod: true, DataMonth: "2024-02"},
			wantDate:       "2024-02-29",
			wantMonth:      "2024-02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Detect(tt.collectionDate, &tt.meta)

			assert.True(t, res.IsClosingPeriod)
			assert.Equal(t, tt.wantDate, res.SnapshotDate)
			assert.Equal(t, tt.wantMonth, res.DataMonth)
			assert.Equal(t, tt.collectionDate.Format(DateLayout), res.CollectionDate)
		})
	}
}

func TestDetectMalformedMetadataIsNonFatal(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name string
		meta PeriodMeta
	}{
		{"empty month", PeriodMeta{IsClosingPeriod: true, DataMonth: ""}},
		{"garbage month", PeriodMeta{IsClosingPeriod: true, DataMonth: "Junetember"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Detect(date(2025, 7, 3), &tt.meta)

			// Degrades to a regular snapshot keyed by collection date.
			assert.False(t, res.IsClosingPeriod)
			assert.Equal(t, "2025-07-03", res.SnapshotDate)
		})
	}
}

func TestDetectNotClosingPeriodIgnoresMonth(t *testing.T) {
	d := NewDetector(nil)

	res := d.Detect(date(2025, 7, 3), &PeriodMeta{IsClosingPeriod: false, DataMonth: "2025-06"})

	assert.False(t, res.IsClosingPeriod)
	assert.Equal(t, "2025-07-03", res.SnapshotDate)
}

func TestLoadSidecar(t *testing.T) {
	d := NewDetector(nil)
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		meta, err := d.LoadSidecar(filepath.Join(dir, "absent.json"))
		require.NoError(t, err)
		assert.Nil(t, meta)
	})

	t.Run("valid sidecar", func(t *testing.T) {
		path := filepath.Join(dir, "closing.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"is_closing_period":true,"data_month":"2025-06"}`), 0644))

		meta, err := d.LoadSidecar(path)
		require.NoError(t, err)
		require.NotNil(t, meta)
		assert.True(t, meta.IsClosingPeriod)
		assert.Equal(t, "2025-06", meta.DataMonth)
	})

	t.Run("malformed sidecar is ignored", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

		meta, err := d.LoadSidecar(path)
		require.NoError(t, err)
		assert.Nil(t, meta)
	})
}
