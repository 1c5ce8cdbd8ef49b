package handlers

import (
	"sacrifice-website/app"
	"sacrifice-website/models"

	"github.com/gofiber/fiber/v2"
)

// CreateReservation holds shares of an animal for the checkout window
func CreateReservation(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateReservationRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		tx, err := a.Reservations.Create(c.UserContext(), req.SacrificeID, req.ShareCount)
		if err != nil {
			return respondError(c, err, "Failed to reserve shares")
		}
		return created(c, fiber.Map{
			"transaction_id": tx.TransactionID,
			"expires_at":     tx.ExpiresAt,
			"transaction":    tx,
		})
	}
}

func GetReservation(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := a.Validator.ValidateVar(id, "transactionid"); err != nil {
			return badRequest(c, "transaction_id must be 16 letters or digits")
		}

		tx, err := a.Reservations.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err, "Failed to fetch reservation")
		}
		return success(c, fiber.Map{"transaction": tx})
	}
}

// CompleteReservation records the buyers of every reserved share
func CompleteReservation(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CompleteReservationRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		res, err := a.Reservations.Complete(c.UserContext(), req.TransactionID, req.Shareholders)
		if err != nil {
			return respondError(c, err, "Failed to complete reservation")
		}
		return success(c, fiber.Map{
			"transaction":  res.Transaction,
			"shareholders": res.Shareholders,
		})
	}
}

func ExpireReservation(a *app.App) fiber.Handler {
	return finishReservation(a, models.ReservationExpired)
}

func CancelReservation(a *app.App) fiber.Handler {
	return finishReservation(a, models.ReservationCanceled)
}

func finishReservation(a *app.App, status models.ReservationStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.TransactionRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		tx, err := a.Reservations.UpdateStatus(c.UserContext(), req.TransactionID, status)
		if err != nil {
			return respondError(c, err, "Failed to update reservation")
		}
		return success(c, fiber.Map{"transaction": tx})
	}
}

// UpdateReservationStatus is the generic status endpoint
func UpdateReservationStatus(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateReservationStatusRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		tx, err := a.Reservations.UpdateStatus(c.UserContext(), req.TransactionID, req.Status)
		if err != nil {
			return respondError(c, err, "Failed to update reservation")
		}
		return success(c, fiber.Map{"transaction": tx})
	}
}
