// The report binary exports one district's analytics artifact as an
// Excel workbook plus CSV mirrors under the reports directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"districtpulse/internal/config"
	"districtpulse/internal/exporter"
	"districtpulse/internal/infrastructure"
	"districtpulse/internal/services"
	"districtpulse/internal/snapshot"
	"districtpulse/internal/timeseries"
)

func main() {
	districtID := flag.String("district", "", "district to export (required)")
	snapshotID := flag.String("snapshot", "", "snapshot date (defaults to the latest successful snapshot)")
	flag.Parse()

	if *districtID == "" {
		fmt.Fprintln(os.Stderr, "usage: report -district <id> [-snapshot <YYYY-MM-DD>]")
		os.Exit(2)
	}

	if err := run(*districtID, *snapshotID); err != nil {
		slog.Error("report export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(districtID, snapshotID string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	store := snapshot.NewStore(paths, logger)
	index := timeseries.NewService(paths, logger)
	service := services.NewDistrictService(store, index, paths, logger)

	ctx := context.Background()

	if snapshotID == "" {
		meta, err := store.GetLatestSuccessful(ctx)
		if err != nil {
			return err
		}
		if meta == nil {
			return fmt.Errorf("no snapshots available")
		}
		snapshotID = meta.ID
	}

	artifact, err := service.GetAnalytics(ctx, districtID, snapshotID)
	if err != nil {
		return err
	}
	if artifact == nil {
		return fmt.Errorf("no analytics for district %s in snapshot %s", districtID, snapshotID)
	}

	snap, err := store.GetDistrict(ctx, snapshotID, districtID)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("no district data for %s in snapshot %s", districtID, snapshotID)
	}

	workbookPath, err := exporter.NewWorkbookExporter(paths, logger).Export(artifact, snap)
	if err != nil {
		return err
	}
	logger.Info("workbook written", slog.String("path", workbookPath))

	csvWriter := exporter.NewCSVWriter(paths)
	trendsPath, err := csvWriter.ExportTrends(artifact)
	if err != nil {
		return err
	}
	logger.Info("trends CSV written", slog.String("path", trendsPath))

	vulnerablePath, err := csvWriter.ExportVulnerableClubs(artifact)
	if err != nil {
		return err
	}
	logger.Info("vulnerable clubs CSV written", slog.String("path", vulnerablePath))
	return nil
}
