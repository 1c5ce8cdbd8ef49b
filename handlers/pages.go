package handlers

import (
	"sacrifice-website/app"
	"sacrifice-website/templates/pages"

	"github.com/gofiber/fiber/v2"
)

// HomePage renders the share availability page
func HomePage(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		animals, err := a.Sacrifices.List(c.UserContext())
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch sacrifices", err)
		}
		avail, err := a.Sacrifices.Availability(c.UserContext())
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch availability", err)
		}

		c.Set("Content-Type", "text/html; charset=utf-8")
		return pages.Home(pages.HomeData{
			Sacrifices:     animals,
			Availability:   avail,
			DeliveryFee:    a.Config.DeliveryFee,
			GoogleClientID: a.Config.GoogleClientID,
		}).Render(c.UserContext(), c.Response().BodyWriter())
	}
}

// TrackingPage renders the stage dashboard
func TrackingPage(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tracking, err := a.Tracking.Tracking(c.UserContext(), c.QueryInt("sacrifice_no", 0))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch tracking", err)
		}

		c.Set("Content-Type", "text/html; charset=utf-8")
		return pages.Tracking(tracking).Render(c.UserContext(), c.Response().BodyWriter())
	}
}
