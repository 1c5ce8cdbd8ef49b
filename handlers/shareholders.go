package handlers

import (
	"sacrifice-website/app"
	"sacrifice-website/middleware"
	"sacrifice-website/models"

	"github.com/gofiber/fiber/v2"
)

func ListShareholders(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := models.ShareholderFilter{
			SacrificeID: c.Query("sacrifice_id"),
			PhoneNumber: c.Query("phone"),
			Unpaid:      c.QueryBool("unpaid", false),
			Limit:       c.QueryInt("limit", 0),
			Offset:      c.QueryInt("offset", 0),
		}

		holders, err := a.Shareholders.List(c.UserContext(), filter)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch shareholders", err)
		}
		return success(c, fiber.Map{"shareholders": holders, "count": len(holders)})
	}
}

func GetShareholder(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sh, err := a.Shareholders.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err, "Failed to fetch shareholder")
		}
		return success(c, fiber.Map{"shareholder": sh})
	}
}

func UpdateShareholder(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateShareholderRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		sh, err := a.Shareholders.Update(c.UserContext(), c.Params("id"), req, middleware.GetUserEmail(c))
		if err != nil {
			return respondError(c, err, "Failed to update shareholder")
		}
		return success(c, fiber.Map{"shareholder": sh})
	}
}

// DeleteShareholder removes a buyer and returns the share to the animal
func DeleteShareholder(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Shareholders.Delete(c.UserContext(), c.Params("id"), middleware.GetUserEmail(c)); err != nil {
			return respondError(c, err, "Failed to delete shareholder")
		}
		return success(c, fiber.Map{"success": true})
	}
}

// LookupShareholder is the public "query my share" form
func LookupShareholder(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.ShareholderLookupRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		holdings, err := a.Shareholders.Lookup(c.UserContext(), req.PhoneNumber, req.SecurityCode)
		if err != nil {
			return respondError(c, err, "Failed to look up shares")
		}
		return success(c, fiber.Map{"shares": holdings})
	}
}

func ExportShareholders(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		animals, err := a.Sacrifices.List(c.UserContext())
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch sacrifices", err)
		}

		n, err := a.Shareholders.Export(c.UserContext(), animals)
		if err != nil {
			return respondError(c, err, "Failed to export shareholders")
		}
		return success(c, fiber.Map{"exported": n})
	}
}
