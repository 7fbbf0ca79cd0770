package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/metrics"
	"budget/internal/ports"
	gsheet "budget/internal/sheets/google"
	sheetsmem "budget/internal/sheets/memory"
	"budget/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)
	cli.ExitOnError(logger, "Configuration validation failed", cfg.ValidateWorker())

	logger.Info("Starting budget-worker")

	backendCfg, err := backend.FromAppConfig(cfg)
	cli.ExitOnError(logger, "Invalid backend configuration", err)
	backendCfg.RequireAMQP = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	cli.ExitOnError(logger, "Failed to initialize backend", err)
	defer func() {
		if err := result.Cleanup.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	}()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger exporter", log.FieldError, err)
		_ = result.Cleanup.Close()
		os.Exit(1)
	}

	m := metrics.New()
	syncWorker := worker.NewSyncWorker(result.Store, exporter, m, cfg.SyncBatchSize)

	// Catch up on anything published while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	sweeper := worker.NewSweeper(syncWorker, cfg.SyncInterval)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return result.AMQP.ConsumeTransactionSync(gctx, syncWorker.HandleSyncMessage)
	})
	g.Go(func() error {
		if err := sweeper.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sweeper.Stop(stopCtx)
	})

	// Metrics only; the worker has no API surface.
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	logger.Info("Worker running", "metrics_port", cfg.Port, "sweep_interval", cfg.SyncInterval)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		stop()
		_ = result.Cleanup.Close()
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

// newExporter writes to Google Sheets when a spreadsheet is configured and
// to an in-process ledger otherwise.
func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (ports.LedgerExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
		return sheetsmem.New(), nil
	}

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client, nil
}
