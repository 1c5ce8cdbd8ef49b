package handlers

import (
	"sacrifice-website/app"
	"sacrifice-website/middleware"
	"sacrifice-website/models"

	"github.com/gofiber/fiber/v2"
)

// ListSacrifices returns every animal with its empty share count
func ListSacrifices(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		animals, err := a.Sacrifices.List(c.UserContext())
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch sacrifices", err)
		}
		return success(c, fiber.Map{
			"sacrifices": animals,
			"version":    a.Sacrifices.Version(),
		})
	}
}

// GetAvailability counts animals per number of empty shares
func GetAvailability(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		avail, err := a.Sacrifices.Availability(c.UserContext())
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch availability", err)
		}
		return success(c, fiber.Map{"availability": avail})
	}
}

func GetSacrifice(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		animal, err := a.Sacrifices.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err, "Failed to fetch sacrifice")
		}
		return success(c, fiber.Map{"sacrifice": animal})
	}
}

func CreateSacrifice(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateSacrificeRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		animal, err := a.Sacrifices.Create(c.UserContext(), req, middleware.GetUserEmail(c))
		if err != nil {
			return respondError(c, err, "Failed to create sacrifice")
		}
		return created(c, fiber.Map{"sacrifice": animal})
	}
}

func UpdateSacrifice(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateSacrificeRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		animal, err := a.Sacrifices.Update(c.UserContext(), c.Params("id"), req, middleware.GetUserEmail(c))
		if err != nil {
			return respondError(c, err, "Failed to update sacrifice")
		}
		return success(c, fiber.Map{"sacrifice": animal})
	}
}

func DeleteSacrifice(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Sacrifices.Delete(c.UserContext(), c.Params("id"), middleware.GetUserEmail(c)); err != nil {
			return respondError(c, err, "Failed to delete sacrifice")
		}
		return success(c, fiber.Map{"success": true})
	}
}

// UpdateShareCount overwrites the empty share counter of an animal
func UpdateShareCount(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateShareCountRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		animal, err := a.Sacrifices.UpdateShareCount(c.UserContext(), c.Params("id"), *req.EmptyShare, middleware.GetUserEmail(c))
		if err != nil {
			return respondError(c, err, "Failed to update share count")
		}
		return success(c, fiber.Map{"sacrifice": animal})
	}
}
