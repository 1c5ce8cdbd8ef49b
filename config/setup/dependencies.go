package setup

import (
	"context"
	"fmt"
	"log/slog"
	"sacrifice-website/app"
	"sacrifice-website/config"
	"sacrifice-website/database"
	"sacrifice-website/export"
	"sacrifice-website/realtime"
	"sacrifice-website/scheduler"
	"sacrifice-website/storage"
	"sacrifice-website/supabase"
	"sacrifice-website/worker"
	"time"
)

const (
	expireBaseInterval = 15 * time.Second
	expireMaxInterval  = worker.MaxIdleInterval
)

// Backend is the persistence layer plus its change feed
type Backend struct {
	Repo     storage.Provider
	Listener *supabase.Listener
}

// InitRepository opens the configured backend. SQL repositories publish their
// own commits on the hub; Supabase changes arrive over the realtime socket.
func InitRepository(ctx context.Context, cfg *config.Config, hub *realtime.Hub, logger *slog.Logger) (*Backend, error) {
	switch cfg.DBDriver {
	case database.DriverSQLite, database.DriverPostgres:
		dsn := cfg.DBPath
		if cfg.DBDriver == database.DriverPostgres {
			dsn = cfg.DatabaseURL
		}
		db, err := database.New(cfg.DBDriver, dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("database initialized", "driver", cfg.DBDriver)
		return &Backend{Repo: database.NewRepository(db, hub)}, nil

	case "supabase":
		client := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		listener := supabase.NewListener(cfg.SupabaseURL, cfg.SupabaseServiceKey, supabase.WatchedTables, hub, logger)
		listener.Start(ctx)
		logger.Info("supabase backend initialized", "url", client.URL())
		return &Backend{Repo: supabase.NewRepository(client), Listener: listener}, nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// InitApp wires the services, attaching the Sheets exporter when configured
func InitApp(ctx context.Context, cfg *config.Config, backend *Backend, hub *realtime.Hub, logger *slog.Logger) (*app.App, error) {
	var opts app.Options
	if cfg.SheetsEnabled() {
		exporter, err := export.NewSheetsExporter(ctx, cfg.SheetsCredentialsPath, cfg.SheetsSpreadsheetID)
		if err != nil {
			return nil, err
		}
		opts.Exporter = exporter
		logger.Info("sheets export enabled", "spreadsheet", cfg.SheetsSpreadsheetID)
	}

	application := app.New(cfg, backend.Repo, hub, logger, opts)
	logger.Info("application initialized with dependency injection")
	return application, nil
}

// Workers are the background jobs started next to the HTTP server
type Workers struct {
	Expirer   *worker.Expirer
	Scheduler *scheduler.Scheduler
}

func StartWorkers(cfg *config.Config, application *app.App, logger *slog.Logger) (*Workers, error) {
	sched, err := scheduler.New(
		application.Repo,
		application.SessionStore,
		cfg.CleanupCron,
		time.Duration(cfg.RetentionDays)*24*time.Hour,
		logger,
	)
	if err != nil {
		return nil, err
	}

	expirer := worker.NewExpirer(application.Reservations, expireBaseInterval, expireMaxInterval, logger)
	expirer.Start()
	sched.Start()
	logger.Info("background workers started")

	return &Workers{Expirer: expirer, Scheduler: sched}, nil
}

// Shutdown performs graceful shutdown of all services
func Shutdown(workers *Workers, backend *Backend, application *app.App, logger *slog.Logger) {
	logger.Info("shutting down services...")

	if workers != nil {
		workers.Expirer.Stop()
		workers.Scheduler.Stop()
		logger.Info("background workers stopped")
	}

	if backend != nil && backend.Listener != nil {
		backend.Listener.Stop()
	}

	if application != nil {
		application.Close()
	}

	if backend != nil {
		if err := backend.Repo.Close(); err != nil {
			logger.Error("failed to close repository", "error", err)
			return
		}
		logger.Info("repository closed")
	}
}
