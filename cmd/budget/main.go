package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/config"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/metrics"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)
	cli.ExitOnError(logger, "Configuration validation failed", cfg.Validate())

	backendCfg, err := backend.FromAppConfig(cfg)
	cli.ExitOnError(logger, "Invalid backend configuration", err)

	result, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).
		CreateBackend(context.Background(), backendCfg)
	cli.ExitOnError(logger, "Failed to initialize backend", err, "backend", cfg.DataBackend)

	m := metrics.New()

	reports := services.NewCachedLister(result.Store, cfg.ReportCacheSize, cfg.ReportCacheTTL, m)
	cacheManager := cache.NewManager(logger.Logger.With(log.FieldComponent, log.ComponentCache))
	cacheManager.Register(reports.Cache())
	cacheManager.StartCleanup(time.Minute)

	opts := []services.Option{
		services.WithInvalidator(reports),
		services.WithObserver(m),
		services.WithClosers(result.Cleanup),
	}
	if result.Publisher != nil {
		opts = append(opts, services.WithPublisher(result.Publisher))
	}
	ledger := services.NewLedgerService(result.Store, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Ledger:  ledger,
		Reports: reports,
		Ready:   result.Ready,
		Metrics: m,
		Logger:  logger,
	}, apphttp.Options{
		RateLimitPerMinute:  cfg.RateLimitPerMinute,
		DisableRateLimit:    cfg.RateLimitPerMinute == 0,
		RecommendationsTopN: cfg.RecommendationsTopN,
	})

	m.RegisterGauge("report_cache_entries", "Transaction snapshots held by the report cache.", func() float64 {
		return float64(reports.Cache().Size())
	})
	m.RegisterGauge("report_cache_evictions", "Snapshots evicted from the report cache.", func() float64 {
		return float64(reports.Cache().Evictions())
	})
	if rl := srv.RateLimiter(); rl != nil {
		m.RegisterGauge("rate_limit_active_clients", "Clients tracked by the rate limiter.", func() float64 {
			return float64(rl.ActiveClients())
		})
	}
	if result.AMQP != nil {
		client := result.AMQP
		m.RegisterGauge("amqp_publisher_healthy", "1 when the sync publisher circuit is closed.", func() float64 {
			if client.Healthy() {
				return 1
			}
			return 0
		})
	}

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
	})

	logger.Info("Starting budget server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"sync_publishing", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = ledger.Close()
		cli.ExitOnError(logger, "Server stopped", err)
	}

	<-done
	if err := ledger.Close(); err != nil {
		logger.Error("Failed to release resources", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
