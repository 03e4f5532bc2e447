// Package closing resolves the logical date of a snapshot. During
// month-end closing windows the external source reports the prior
// month's final figures under the current collection date; the detector
// reattributes such data to the last day of the month it belongs to.
package closing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// DateLayout is the canonical date form used for snapshot ids.
const DateLayout = "2006-01-02"

// monthLayout is the normalized data-month form.
const monthLayout = "2006-01"

// PeriodMeta is the optional closing-period sidecar the collector writes
// next to a raw export.
type PeriodMeta struct {
	IsClosingPeriod bool   `json:"is_closing_period"`
	DataMonth       string `json:"data_month"`
}

// Resolution is the outcome of closing-period detection. SnapshotDate is
// the logical date the snapshot must be stored under.
type Resolution struct {
	SnapshotDate    string
	IsClosingPeriod bool
	DataMonth       string
	CollectionDate  string
}

// Detector resolves logical snapshot dates.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a detector.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger.With(slog.String("component", "closing_detector"))}
}

// Detect resolves the snapshot date for a collection date plus optional
// sidecar metadata. Missing or unparseable metadata degrades to
// non-closing-period with a warning; it is never fatal.
func (d *Detector) Detect(collectionDate time.Time, meta *PeriodMeta) Resolution {
	collected := collectionDate.Format(DateLayout)
	res := Resolution{
		SnapshotDate:   collected,
		CollectionDate: collected,
	}

	if meta == nil || !meta.IsClosingPeriod {
		return res
	}

	month, err := parseDataMonth(meta.DataMonth, collectionDate)
	if err != nil {
		d.logger.Warn("unparseable closing-period metadata, treating as regular snapshot",
			slog.String("data_month", meta.DataMonth),
			slog.String("collection_date", collected),
			slog.String("error", err.Error()))
		return res
	}

	res.IsClosingPeriod = true
	res.DataMonth = month.Format(monthLayout)
	res.SnapshotDate = lastDayOfMonth(month).Format(DateLayout)
	return res
}

// LoadSidecar reads the optional closing-period sidecar at path. A missing
// file returns (nil, nil); a malformed file returns nil metadata with a
// warning, matching the detector's non-fatal contract.
func (d *Detector) LoadSidecar(path string) (*PeriodMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read closing-period sidecar %s: %w", path, err)
	}

	var meta PeriodMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		d.logger.Warn("malformed closing-period sidecar, ignoring",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, nil
	}
	return &meta, nil
}

// parseDataMonth accepts a normalized "2006-01" month or an English month
// name. A bare month name takes its year from the collection date, except
// that December seen from a January collection date belongs to the prior
// year (the month-end window crosses New Year).
func parseDataMonth(raw string, collectionDate time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty data month")
	}

	if t, err := time.Parse(monthLayout, raw); err == nil {
		return t, nil
	}

	if t, err := time.Parse("January", raw); err == nil {
		year := collectionDate.Year()
		if t.Month() == time.December && collectionDate.Month() == time.January {
			year--
		}
		return time.Date(year, t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized data month %q", raw)
}

// lastDayOfMonth returns the final calendar day of t's month.
func lastDayOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}
