package handlers

import (
	"sacrifice-website/app"
	"sacrifice-website/middleware"
	"sacrifice-website/models"

	"github.com/gofiber/fiber/v2"
)

func ListUsers(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		users, err := a.Users.List(c.UserContext())
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch users", err)
		}
		return success(c, fiber.Map{"users": users})
	}
}

// UpdateUser approves, blocks or promotes a user
func UpdateUser(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateUserRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		user, err := a.Users.Update(c.UserContext(), c.Params("id"), req, middleware.GetSession(c))
		if err != nil {
			return respondError(c, err, "Failed to update user")
		}
		return success(c, fiber.Map{"user": user})
	}
}
