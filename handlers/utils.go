package handlers

import (
	"errors"
	"log/slog"
	"sacrifice-website/services"
	"sacrifice-website/validator"

	"github.com/gofiber/fiber/v2"
)

func success(c *fiber.Ctx, data fiber.Map) error {
	return c.JSON(data)
}

func created(c *fiber.Ctx, data fiber.Map) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": message})
}

func forbidden(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": message})
}

func conflict(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": message})
}

func validationError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   verrs.Error(),
			"details": verrs,
		})
	}
	return badRequest(c, err.Error())
}

func serverErrorWithDetails(c *fiber.Ctx, message string, err error) error {
	requestID := ""
	if id, ok := c.Locals("requestID").(string); ok {
		requestID = id
	}

	slog.Error("server error",
		"request_id", requestID,
		"method", c.Method(),
		"path", c.Path(),
		"message", message,
		"error", err,
	)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": message})
}

// respondError maps service errors onto status codes
func respondError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrInvalidShareCount),
		errors.Is(err, services.ErrShareCountMismatch),
		errors.Is(err, services.ErrShareholdersRequired),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPhone):
		return badRequest(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrInvalidAuthCode),
		errors.Is(err, services.ErrInvalidUserInfo),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrUnauthorized):
		return unauthorized(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrUserNotApproved),
		errors.Is(err, services.ErrInvalidSecurityCode):
		return forbidden(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrSacrificeNotFound),
		errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, services.ErrShareholderNotFound),
		errors.Is(err, services.ErrStageNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return notFound(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrSacrificeExists),
		errors.Is(err, services.ErrHasShareholders),
		errors.Is(err, services.ErrInsufficientShares),
		errors.Is(err, services.ErrTransactionNotActive),
		errors.Is(err, services.ErrConcurrentUpdate):
		return conflict(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrExportUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": capitalize(err.Error())})
	}
	return serverErrorWithDetails(c, fallback, err)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
