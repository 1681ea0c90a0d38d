package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"financemei/internal/backend"
	"financemei/internal/cli"
	"financemei/internal/config"
	applog "financemei/internal/log"
	"financemei/internal/metrics"
	"financemei/internal/services"
	"financemei/internal/tax"
	"financemei/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting financemei-worker")

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

	// The worker reads straight from the store; a snapshot cache here would
	// never see the server's invalidations.
	reports := services.NewReportService(store.Store, taxes, ceiling)
	standing := worker.NewStandingWorker(reports, store.Store)

	var consumer backend.Consumer
	if cfg.EventsBackend != config.EventsNone {
		consumer, err = factory.CreateConsumer(backendCfg)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize event consumer", "error", err, "events", cfg.EventsBackend)
		}
	} else {
		logger.Info("Events disabled, running scheduled sweeps only")
	}

	var metricsSrv *http.Server
	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", "error", err, "addr", cfg.WorkerMetricsAddr)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := standing.Stop(ctx); err != nil {
			logger.Error("Failed to stop standing worker", "error", err)
		}
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error("Failed to close event consumer", "error", err)
			}
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Failed to close ledger store", "error", err)
			}
		}
	})

	// Classify everyone once on startup so gauges are populated before the
	// first scheduled run.
	if _, err := standing.Sweep(ctx); err != nil {
		logger.Error("Startup sweep failed", "error", err)
	}

	if err := standing.Start(ctx, cfg.SweepSchedule); err != nil {
		cli.Fatal(logger, "Failed to start standing worker", "error", err, "schedule", cfg.SweepSchedule)
	}

	if consumer != nil {
		go func() {
			if err := consumer.Consume(ctx, standing.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", "error", err)
			}
		}()
	}

	logger.Info("Worker started",
		"backend", cfg.DataBackend,
		"events", cfg.EventsBackend,
		"schedule", cfg.SweepSchedule)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
