package handlers

import (
	"sacrifice-website/app"
	"sacrifice-website/middleware"
	"sacrifice-website/models"

	"github.com/gofiber/fiber/v2"
)

// GetTracking returns the stage dashboard. A since equal to the current
// version answers 304 so the page can poll cheaply.
func GetTracking(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if since := c.QueryInt("since", 0); since > 0 && uint64(since) == a.Tracking.Version() {
			return c.SendStatus(fiber.StatusNotModified)
		}

		sacrificeNo := c.QueryInt("sacrifice_no", 0)
		if sacrificeNo < 0 {
			return badRequest(c, "sacrifice_no must be positive")
		}

		tracking, err := a.Tracking.Tracking(c.UserContext(), sacrificeNo)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch tracking", err)
		}
		return success(c, fiber.Map{"tracking": tracking})
	}
}

func AdvanceStage(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stage := models.Stage(c.Params("stage"))
		if err := a.Validator.ValidateVar(string(stage), "stage"); err != nil {
			return notFound(c, "Stage not found")
		}

		m, err := a.Tracking.Advance(c.UserContext(), stage, middleware.GetUserEmail(c))
		if err != nil {
			return respondError(c, err, "Failed to advance stage")
		}
		return success(c, fiber.Map{"stage": m})
	}
}

// SetStage corrects the current sacrifice number of a stage
func SetStage(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stage := models.Stage(c.Params("stage"))
		if err := a.Validator.ValidateVar(string(stage), "stage"); err != nil {
			return notFound(c, "Stage not found")
		}

		var req models.SetStageRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		m, err := a.Tracking.Set(c.UserContext(), stage, *req.CurrentSacrificeNumber, middleware.GetUserEmail(c))
		if err != nil {
			return respondError(c, err, "Failed to update stage")
		}
		return success(c, fiber.Map{"stage": m})
	}
}
