package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// ServerTime lets the checkout page run its reservation countdown against
// the server clock instead of the visitor's
func ServerTime(c *fiber.Ctx) error {
	timezone := c.Query("timezone", "Europe/Istanbul")

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
		timezone = "UTC"
	}

	now := time.Now().In(loc)
	return c.JSON(fiber.Map{
		"timestamp": now.Unix(),
		"timezone":  timezone,
		"time":      now.Format(time.RFC3339),
	})
}
