package app

import (
	"context"
	"log/slog"
	"sacrifice-website/config"
	"sacrifice-website/database"
	"sacrifice-website/models"
	"sacrifice-website/realtime"
	"sacrifice-website/services"
	"sacrifice-website/session"
	"sacrifice-website/storage"
	"sacrifice-website/validator"
	"time"
)

// storeMaxAge bounds staleness when the change feed is down
const storeMaxAge = time.Minute

// App holds all application dependencies
// This struct is the central point for dependency injection
type App struct {
	Config       *config.Config
	Repo         storage.Provider
	Hub          *realtime.Hub
	SessionStore *session.Store
	Validator    *validator.Validator
	Logger       *slog.Logger

	SacrificeStore *realtime.Store[[]models.SacrificeAnimal]
	StageStore     *realtime.Store[[]models.StageMetric]

	ChangeLogs   *services.ChangeLogService
	Sacrifices   *services.SacrificeService
	Reservations *services.ReservationService
	Shareholders *services.ShareholderService
	Tracking     *services.TrackingService
	Users        *services.UserService
	Auth         *services.AuthService
}

// Options carries the optional collaborators
type Options struct {
	Exporter       services.Exporter
	TokenValidator services.TokenValidator
}

// New creates a new App instance with all dependencies
func New(cfg *config.Config, repo storage.Provider, hub *realtime.Hub, logger *slog.Logger, opts Options) *App {
	sacrificeStore := realtime.NewStore("sacrifices", func(ctx context.Context) ([]models.SacrificeAnimal, error) {
		return repo.ListSacrifices(ctx)
	}, storeMaxAge).Watch(hub, database.TableSacrifices)

	stageStore := realtime.NewStore("stages", func(ctx context.Context) ([]models.StageMetric, error) {
		return repo.ListStageMetrics(ctx)
	}, storeMaxAge).Watch(hub, database.TableStageMetrics)

	sessions := session.NewStore(repo, cfg.SessionTTL)
	changes := services.NewChangeLogService(repo)

	return &App{
		Config:       cfg,
		Repo:         repo,
		Hub:          hub,
		SessionStore: sessions,
		Validator:    validator.New(),
		Logger:       logger,

		SacrificeStore: sacrificeStore,
		StageStore:     stageStore,

		ChangeLogs: changes,
		Sacrifices: services.NewSacrificeService(repo, changes, sacrificeStore),
		Reservations: services.NewReservationService(repo, changes, services.ReservationConfig{
			TTL:         cfg.ReservationTTL,
			MaxShares:   cfg.MaxSharesPerReservation,
			DeliveryFee: cfg.DeliveryFee,
		}),
		Shareholders: services.NewShareholderService(repo, changes, opts.Exporter, cfg.DeliveryFee),
		Tracking:     services.NewTrackingService(repo, changes, stageStore),
		Users:        services.NewUserService(repo, changes),
		Auth:         services.NewAuthService(repo, sessions, opts.TokenValidator, cfg),
	}
}

// Close stops the stores from watching the hub
func (a *App) Close() {
	a.SacrificeStore.Close()
	a.StageStore.Close()
}
