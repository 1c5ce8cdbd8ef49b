package middleware

import (
	"context"
	"log/slog"
	"sacrifice-website/models"

	"github.com/gofiber/fiber/v2"
)

const SessionCookie = "session_id"

// SessionGetter resolves a session cookie
type SessionGetter interface {
	Get(ctx context.Context, sessionID string) (*models.Session, error)
}

// AuthRequired rejects requests without a valid session cookie
func AuthRequired(sessions SessionGetter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookie)
		if sessionID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing session",
			})
		}

		sess, err := sessions.Get(c.UserContext(), sessionID)
		if err != nil {
			slog.Error("Session lookup failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}
		if sess == nil {
			c.ClearCookie(SessionCookie)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Session expired",
			})
		}

		c.Locals("userID", sess.UserID)
		c.Locals("userEmail", sess.Email)
		c.Locals("session", sess)
		return c.Next()
	}
}

// RequireApproved lets only approved users through. Must run after AuthRequired.
func RequireApproved() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := GetSession(c)
		if sess == nil || sess.Status != models.UserApproved {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Account is not approved",
			})
		}
		return c.Next()
	}
}

func RequireRole(role models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := GetSession(c)
		if sess == nil || sess.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient permissions",
			})
		}
		return c.Next()
	}
}

func GetSession(c *fiber.Ctx) *models.Session {
	sess, _ := c.Locals("session").(*models.Session)
	return sess
}

func GetUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUserEmail is what change logs record as the editor
func GetUserEmail(c *fiber.Ctx) string {
	email, ok := c.Locals("userEmail").(string)
	if !ok {
		return ""
	}
	return email
}
