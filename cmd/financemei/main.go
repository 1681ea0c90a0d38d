package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"financemei/internal/backend"
	"financemei/internal/cache"
	"financemei/internal/cli"
	apphttp "financemei/internal/http"
	applog "financemei/internal/log"
	"financemei/internal/middleware/ratelimit"
	"financemei/internal/services"
	"financemei/internal/tax"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentHTTP)
	cfg := cli.LoadAndValidateConfig(logger)

	ceiling, err := cfg.Ceiling()
	if err != nil {
		cli.Fatal(logger, "Invalid revenue ceiling", "error", err)
	}
	taxes, err := tax.NewRegistryFromPath(cfg.TaxTablePath, ceiling)
	if err != nil {
		cli.Fatal(logger, "Failed to load tax tables", "error", err, "path", cfg.TaxTablePath)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", "error", err)
	}
	factory := backend.NewFactory(logger.Logger)

	store, err := factory.CreateStore(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize ledger store", "error", err, "backend", cfg.DataBackend)
	}
	publisher, err := factory.CreatePublisher(backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize event publisher", "error", err, "events", cfg.EventsBackend)
	}

	snapshots := services.NewSnapshotCache(cfg.SnapshotCacheSize, cfg.SnapshotCacheTTL)
	cacheManager := cache.NewManager()
	if cleaner := snapshots.Cleaner(); cleaner != nil {
		cacheManager.Register(cleaner)
		cacheManager.StartCleanup(time.Minute)
	}

	reports := services.NewReportService(store.Store, taxes, ceiling,
		services.WithSnapshotCache(snapshots),
		services.WithFetchTimeout(cfg.RequestTimeout),
	)
	ledgerSvc := services.NewLedgerService(store.Store,
		services.WithPublisher(publisher),
		services.WithInvalidation(snapshots),
		services.WithTrialDays(cfg.TrialDays),
	)

	srv := apphttp.NewServer(":"+cfg.Port, reports, ledgerSvc, apphttp.Options{
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		RequestTimeout: cfg.RequestTimeout,
		Ready:          store.Ping,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if err := ledgerSvc.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Failed to close ledger store", "error", err)
			}
		}
	})

	logger.Info("Starting financemei server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", cfg.EventsBackend,
		"ceiling", ceiling.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", "error", err, "port", cfg.Port)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
