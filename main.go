package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sacrifice-website/config"
	"sacrifice-website/config/setup"
	"sacrifice-website/database"
	"sacrifice-website/metrics"
	"sacrifice-website/realtime"
	"syscall"
	"time"
)

func main() {
	if err := config.Load(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	logger := setup.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := realtime.NewHub(logger)
	stopMetrics := metrics.WatchEvents(hub, database.TableTransactions)
	defer stopMetrics()

	backend, err := setup.InitRepository(ctx, cfg, hub, logger)
	if err != nil {
		logger.Error("failed to initialize backend", "error", err)
		os.Exit(1)
	}

	application, err := setup.InitApp(ctx, cfg, backend, hub, logger)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		setup.Shutdown(nil, backend, nil, logger)
		os.Exit(1)
	}

	workers, err := setup.StartWorkers(cfg, application, logger)
	if err != nil {
		logger.Error("failed to start workers", "error", err)
		setup.Shutdown(nil, backend, application, logger)
		os.Exit(1)
	}

	app := setup.NewFiberApp(cfg, logger)
	setup.ApplyMiddleware(app, cfg, logger)
	setup.RegisterRoutes(app, application)

	logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	stop()
	setup.Shutdown(workers, backend, application, logger)

	logger.Info("server stopped")
}
