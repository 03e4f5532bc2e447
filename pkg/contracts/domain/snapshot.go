package domain

import "time"

// SnapshotStatus reflects how a snapshot run finished.
type SnapshotStatus string

const (
	SnapshotComplete SnapshotStatus = "complete"
	SnapshotPartial  SnapshotStatus = "partial"
	SnapshotFailed   SnapshotStatus = "failed"
)

// ClosingPeriodInfo records the date reconciliation applied to a
// closing-period snapshot. CollectionDate is when the data was actually
// pulled; LogicalDate is the month-end date the data belongs to and is
// always the snapshot's identifier.
type ClosingPeriodInfo struct {
	IsClosingPeriodData bool   `json:"is_closing_period_data"`
	DataMonth           string `json:"data_month"`
	CollectionDate      string `json:"collection_date"`
	LogicalDate         string `json:"logical_date"`
}

// DistrictResult is one district's outcome within a snapshot run.
type DistrictResult struct {
	DistrictID string `json:"district_id"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// SnapshotMetadata describes one snapshot. ID is the logical date in
// 2006-01-02 form.
type SnapshotMetadata struct {
	ID            string             `json:"id"`
	RunID         string             `json:"run_id"`
	CreatedAt     time.Time          `json:"created_at"`
	Status        SnapshotStatus     `json:"status"`
	Districts     []DistrictResult   `json:"districts"`
	ClosingPeriod *ClosingPeriodInfo `json:"closing_period,omitempty"`
}

// FailedDistricts returns the ids of districts that failed in this run.
func (m SnapshotMetadata) FailedDistricts() []string {
	var out []string
	for _, d := range m.Districts {
		if !d.OK {
			out = append(out, d.DistrictID)
		}
	}
	return out
}

// DistrictSnapshot is the stored per-district payload of one snapshot.
type DistrictSnapshot struct {
	SnapshotID string             `json:"snapshot_id"`
	DistrictID string             `json:"district_id"`
	Statistics DistrictStatistics `json:"statistics"`
	Clubs      []ClubRecord       `json:"clubs"`
}

// TimeSeriesDataPoint is one appended observation in a program-year
// partition. SnapshotID ties the point to its originating snapshot so
// cascading deletes can prune it.
type TimeSeriesDataPoint struct {
	Date         string             `json:"date"`
	SnapshotID   string             `json:"snapshot_id"`
	MetricValues map[string]float64 `json:"metric_values"`
}
