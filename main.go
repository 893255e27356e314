package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/ahmedelsayed5113/sells-project-1/catalog"
	"github.com/ahmedelsayed5113/sells-project-1/config"
	"github.com/ahmedelsayed5113/sells-project-1/server"
	"github.com/ahmedelsayed5113/sells-project-1/storage"
	"github.com/ahmedelsayed5113/sells-project-1/syncer"
	"github.com/ahmedelsayed5113/sells-project-1/utils"
)

func main() {
	importPath := flag.String("import", "", "bulk-import a units CSV and exit")
	flag.Parse()

	logger, err := utils.NewFileLogger("sync_log.txt")
	if err != nil {
		logger = utils.NewLogger()
		logger.Warn("Could not open sync_log.txt: %v — logging to console only", err)
	}
	defer logger.Close()

	cfg := config.Load()

	logger.Info("=== Unit Sync Service starting ===")
	logger.Info("Config — places: %d | concurrency: %d | interval: %dm | coverage threshold: %.0f%%",
		len(cfg.Places), cfg.MaxConcurrency, cfg.SyncIntervalMin, cfg.CoverageThreshold*100)

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	if *importPath != "" {
		runImport(store, *importPath, logger)
		return
	}

	client := catalog.New(cfg, logger)
	fetcher := catalog.NewFetcher(cfg, client, logger)
	sync := syncer.New(store, fetcher, cfg.CoverageThreshold, logger)

	// First cycle right away, then on the cron cadence.
	go runCycle(sync, logger)

	c := cron.New()
	spec := fmt.Sprintf("@every %dm", cfg.SyncIntervalMin)
	if _, err := c.AddFunc(spec, func() { runCycle(sync, logger) }); err != nil {
		logger.Error("Failed to schedule sync: %v", err)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	srv := server.New(store, store, sync, logger)
	if err := srv.Run(":" + cfg.HTTPPort); err != nil {
		logger.Error("HTTP server failed: %v", err)
		os.Exit(1)
	}
}

func runCycle(sync *syncer.Syncer, logger *utils.Logger) {
	if _, err := sync.RunCycle(context.Background()); err != nil {
		if errors.Is(err, syncer.ErrCycleRunning) {
			logger.Warn("[trigger] previous sync cycle still running — skipping")
			return
		}
		logger.Error("[trigger] sync cycle failed: %v", err)
	}
}

func runImport(store *storage.PostgresStore, path string, logger *utils.Logger) {
	units, err := storage.ReadUnitsCSV(path)
	if err != nil {
		logger.Error("CSV import failed: %v", err)
		os.Exit(1)
	}
	if len(units) == 0 {
		logger.Warn("No units found in %s", path)
		return
	}
	if err := store.BulkImport(context.Background(), units); err != nil {
		logger.Error("Bulk import failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Imported %d units from %s", len(units), path)
}
