package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the single source of truth for the on-disk data layout.
//
//	<data>/
//	  ├── raw/          (parsed export drops + closing-period sidecars)
//	  ├── snapshots/    (one directory per logical snapshot date)
//	  ├── timeseries/   (program-year partitions per district)
//	  ├── artifacts/    (per-district analytics JSON)
//	  └── reports/      (exported workbooks and CSVs)
type Paths struct {
	DataDir       string
	RawDir        string
	SnapshotsDir  string
	TimeSeriesDir string
	ArtifactsDir  string
	ReportsDir    string
	LogsDir       string
}

// NewPaths derives the full layout from the configured data directory.
// Relative directories resolve against the working directory of the job.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	logsDir, err := filepath.Abs(cfg.LogsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve logs dir: %w", err)
	}
	return &Paths{
		DataDir:       dataDir,
		RawDir:        filepath.Join(dataDir, "raw"),
		SnapshotsDir:  filepath.Join(dataDir, "snapshots"),
		TimeSeriesDir: filepath.Join(dataDir, "timeseries"),
		ArtifactsDir:  filepath.Join(dataDir, "artifacts"),
		ReportsDir:    filepath.Join(dataDir, "reports"),
		LogsDir:       logsDir,
	}, nil
}

// EnsureDirectories creates every directory of the layout.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.DataDir, p.RawDir, p.SnapshotsDir,
		p.TimeSeriesDir, p.ArtifactsDir, p.ReportsDir, p.LogsDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SnapshotDir returns the directory for one snapshot id.
func (p *Paths) SnapshotDir(snapshotID string) string {
	return filepath.Join(p.SnapshotsDir, snapshotID)
}

// ArtifactDir returns the analytics artifact directory for one snapshot.
func (p *Paths) ArtifactDir(snapshotID string) string {
	return filepath.Join(p.ArtifactsDir, snapshotID)
}

// ArtifactPath returns the analytics artifact path for one district at
// one snapshot.
func (p *Paths) ArtifactPath(snapshotID, districtID string) string {
	return filepath.Join(p.ArtifactDir(snapshotID), districtID+".json")
}

// PartitionDir returns the time-series directory for one district.
func (p *Paths) PartitionDir(districtID string) string {
	return filepath.Join(p.TimeSeriesDir, districtID)
}

// ReportPath returns the path of an exported report file.
func (p *Paths) ReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// FileExists reports whether a path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
