package setup

import (
	"sacrifice-website/app"
	"sacrifice-website/handlers"
	"sacrifice-website/metrics"
	"sacrifice-website/middleware"
	"sacrifice-website/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(fiberApp *fiber.App, application *app.App) {
	// Pages
	fiberApp.Get("/", handlers.HomePage(application))
	fiberApp.Get("/takip", handlers.TrackingPage(application))
	fiberApp.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })
	fiberApp.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := fiberApp.Group("/api")
	api.Get("/time", handlers.ServerTime)

	// Auth routes
	api.Post("/auth/login", handlers.Login(application))
	api.Get("/auth/google", handlers.GoogleLogin(application))
	api.Get("/auth/callback", handlers.GoogleCallback(application))
	api.Post("/auth/logout", handlers.Logout(application))
	api.Get("/auth/me", handlers.Me(application))

	// Public API
	api.Get("/sacrifices", handlers.ListSacrifices(application))
	api.Get("/sacrifices/availability", handlers.GetAvailability(application))
	api.Get("/sacrifices/:id", handlers.GetSacrifice(application))

	api.Post("/reservations", reservationLimiter(), handlers.CreateReservation(application))
	api.Post("/reservations/complete", handlers.CompleteReservation(application))
	api.Post("/reservations/expire", handlers.ExpireReservation(application))
	api.Post("/reservations/cancel", handlers.CancelReservation(application))
	api.Post("/reservations/status", handlers.UpdateReservationStatus(application))
	api.Get("/reservations/:id", handlers.GetReservation(application))

	api.Post("/shareholders/lookup", handlers.LookupShareholder(application))
	api.Get("/tracking", handlers.GetTracking(application))

	// Admin API
	admin := api.Group("/admin", middleware.AuthRequired(application.SessionStore), middleware.RequireApproved())

	admin.Post("/sacrifices", handlers.CreateSacrifice(application))
	admin.Put("/sacrifices/:id", handlers.UpdateSacrifice(application))
	admin.Delete("/sacrifices/:id", handlers.DeleteSacrifice(application))
	admin.Put("/sacrifices/:id/share", handlers.UpdateShareCount(application))

	admin.Get("/shareholders", handlers.ListShareholders(application))
	admin.Post("/shareholders/export", handlers.ExportShareholders(application))
	admin.Get("/shareholders/:id", handlers.GetShareholder(application))
	admin.Put("/shareholders/:id", handlers.UpdateShareholder(application))
	admin.Delete("/shareholders/:id", handlers.DeleteShareholder(application))

	admin.Get("/change-logs", handlers.ListChangeLogs(application))

	admin.Post("/stages/:stage/advance", handlers.AdvanceStage(application))
	admin.Put("/stages/:stage", handlers.SetStage(application))

	users := admin.Group("/users", middleware.RequireRole(models.RoleAdmin))
	users.Get("/", handlers.ListUsers(application))
	users.Put("/:id", handlers.UpdateUser(application))
}
