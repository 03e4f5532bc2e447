// Package ingest reads the raw dashboard exports for one collection
// date and turns them into typed pipeline inputs. This is the only
// place CSV structure is interpreted; everything downstream works on
// domain types.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"districtpulse/internal/closing"
	"districtpulse/internal/operations"
	"districtpulse/pkg/contracts/domain"
)

const (
	districtsFile  = "districts.csv"
	sidecarFile    = "closing.json"
	clubFilePrefix = "clubs_"
)

// Loader reads one run directory under the raw data dir.
type Loader struct {
	detector        *closing.Detector
	checkpointGoals int
	logger          *slog.Logger
}

// NewLoader creates a loader. checkpointGoals is the goals-met pace used
// to resolve the DCP checkpoint for exports without a checkpoint column.
func NewLoader(detector *closing.Detector, checkpointGoals int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		detector:        detector,
		checkpointGoals: checkpointGoals,
		logger:          logger.With(slog.String("component", "ingest")),
	}
}

// LoadRunDirectory reads districts.csv, the per-district club exports,
// and the optional closing-period sidecar from dir. A district without
// a club export enters the run with an empty club list.
func (l *Loader) LoadRunDirectory(dir string) ([]operations.DistrictInput, *closing.PeriodMeta, error) {
	rows, err := readRawRecords(filepath.Join(dir, districtsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("read district export: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("district export %s carries no rows", filepath.Join(dir, districtsFile))
	}

	var inputs []operations.DistrictInput
	for _, row := range rows {
		stats := domain.FromRaw(row)
		if stats.DistrictID == "" {
			l.logger.Warn("district row without a district id, skipping")
			continue
		}

		clubs, err := l.loadClubs(dir, stats.DistrictID)
		if err != nil {
			return nil, nil, err
		}
		inputs = append(inputs, operations.DistrictInput{
			Statistics: stats,
			Clubs:      clubs,
		})
	}
	if len(inputs) == 0 {
		return nil, nil, fmt.Errorf("district export %s carries no usable rows", filepath.Join(dir, districtsFile))
	}

	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].Statistics.DistrictID < inputs[j].Statistics.DistrictID
	})

	sidecar, err := l.detector.LoadSidecar(filepath.Join(dir, sidecarFile))
	if err != nil {
		return nil, nil, err
	}

	l.logger.Info("run directory loaded",
		slog.String("dir", dir),
		slog.Int("districts", len(inputs)),
		slog.Bool("sidecar", sidecar != nil))
	return inputs, sidecar, nil
}

func (l *Loader) loadClubs(dir, districtID string) ([]domain.ClubRecord, error) {
	path := filepath.Join(dir, clubFilePrefix+districtID+".csv")
	rows, err := readRawRecords(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("no club export for district",
				slog.String("district_id", districtID))
			return nil, nil
		}
		return nil, fmt.Errorf("read club export for district %s: %w", districtID, err)
	}

	clubs := make([]domain.ClubRecord, 0, len(rows))
	for _, row := range rows {
		club := domain.ClubFromRaw(row, l.checkpointGoals)
		if club.ClubID == "" {
			continue
		}
		clubs = append(clubs, club)
	}
	return clubs, nil
}

// readRawRecords reads a headed CSV into raw records keyed by column
// name. Ragged rows are tolerated; short rows leave trailing columns
// unset.
func readRawRecords(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []domain.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row of %s: %w", path, err)
		}
		record := make(domain.RawRecord, len(header))
		for i, col := range header {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}
