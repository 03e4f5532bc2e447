// The processor binary executes one snapshot pipeline run over the raw
// exports of a collection date. It is meant for job-style invocation
// (cron, CI); the server binary exposes the same pipeline over HTTP.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"districtpulse/internal/analytics"
	"districtpulse/internal/closing"
	"districtpulse/internal/config"
	"districtpulse/internal/infrastructure"
	"districtpulse/internal/ingest"
	"districtpulse/internal/operations"
	"districtpulse/internal/ranking"
	"districtpulse/internal/snapshot"
	"districtpulse/internal/timeseries"
)

func main() {
	date := flag.String("date", time.Now().Format(closing.DateLayout), "collection date (YYYY-MM-DD)")
	rawDir := flag.String("in", "", "run directory (defaults to <data>/raw/<date>)")
	flag.Parse()

	if err := run(*date, *rawDir); err != nil {
		slog.Error("processor run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(date, rawDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}

	collected, err := time.Parse(closing.DateLayout, date)
	if err != nil {
		logger.Error("invalid collection date", slog.String("date", date))
		return err
	}

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	if rawDir == "" {
		rawDir = filepath.Join(paths.RawDir, date)
	}

	detector := closing.NewDetector(logger)
	loader := ingest.NewLoader(detector, cfg.Pipeline.DCPCheckpointGoals, logger)
	districts, sidecar, err := loader.LoadRunDirectory(rawDir)
	if err != nil {
		return err
	}

	tracer, err := operations.NewRunTracer(providers)
	if err != nil {
		return err
	}

	manager, err := operations.NewManager(operations.ManagerDeps{
		Store:          snapshot.NewStore(paths, logger),
		Index:          timeseries.NewService(paths, logger),
		Detector:       detector,
		Ranker:         ranking.NewCalculator(logger),
		Computer:       analytics.NewComputer(logger),
		Paths:          paths,
		Tracer:         tracer,
		Logger:         logger,
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.RunTimeout)
	defer cancel()

	runRecord, runErr := manager.Execute(ctx, operations.RunRequest{
		CollectionDate: collected,
		Sidecar:        sidecar,
		Districts:      districts,
	})
	if runErr != nil {
		return runErr
	}

	logger.Info("run finished",
		slog.String("run_id", runRecord.ID),
		slog.String("snapshot_id", runRecord.SnapshotID),
		slog.String("status", string(runRecord.Status)))

	if runRecord.Status == operations.RunStatusPartial {
		for _, d := range runRecord.Districts {
			if !d.OK {
				logger.Warn("district failed",
					slog.String("district_id", d.DistrictID),
					slog.String("error", d.Error))
			}
		}
	}
	return nil
}
