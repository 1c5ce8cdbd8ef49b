package handlers

import (
	"log/slog"
	"sacrifice-website/app"
	"sacrifice-website/middleware"
	"sacrifice-website/models"
	"sacrifice-website/services"
	"time"

	"github.com/gofiber/fiber/v2"
)

const stateCookie = "oauth_state"

func setSessionCookie(a *app.App, c *fiber.Ctx, sess *models.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.ID,
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   a.Config.IsProduction(),
		SameSite: "Lax",
		Path:     "/",
	})
}

func sessionUser(sess *models.Session) fiber.Map {
	return fiber.Map{
		"id":     sess.UserID,
		"email":  sess.Email,
		"name":   sess.Name,
		"role":   sess.Role,
		"status": sess.Status,
	}
}

// Login signs in with a Google ID token from the One Tap button
func Login(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		sess, err := a.Auth.LoginWithIDToken(c.UserContext(), req.IDToken)
		if err != nil {
			slog.Warn("Login failed", "error", err)
			return respondError(c, err, "Authentication failed")
		}

		setSessionCookie(a, c, sess)
		return success(c, fiber.Map{
			"success": true,
			"user":    sessionUser(sess),
		})
	}
}

// GoogleLogin redirects to Google OAuth consent screen
func GoogleLogin(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := services.NewState()
		c.Cookie(&fiber.Cookie{
			Name:     stateCookie,
			Value:    state,
			Expires:  time.Now().Add(10 * time.Minute),
			HTTPOnly: true,
			Secure:   a.Config.IsProduction(),
			SameSite: "Lax",
			Path:     "/",
		})
		return c.Redirect(a.Auth.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
	}
}

// GoogleCallback handles the OAuth callback from Google
func GoogleCallback(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := c.Cookies(stateCookie)
		c.ClearCookie(stateCookie)
		if expected == "" || c.Query("state") != expected {
			slog.Warn("OAuth state mismatch")
			return c.Redirect("/?error=invalid_state", fiber.StatusTemporaryRedirect)
		}

		if errParam := c.Query("error"); errParam != "" {
			return c.Redirect("/?error="+errParam, fiber.StatusTemporaryRedirect)
		}

		code := c.Query("code")
		if code == "" {
			return c.Redirect("/?error=missing_code", fiber.StatusTemporaryRedirect)
		}

		sess, err := a.Auth.LoginWithCode(c.UserContext(), code)
		if err != nil {
			slog.Warn("OAuth login failed", "error", err)
			return c.Redirect("/?error=auth_failed", fiber.StatusTemporaryRedirect)
		}

		setSessionCookie(a, c, sess)
		return c.Redirect("/", fiber.StatusTemporaryRedirect)
	}
}

// Logout handles user logout
func Logout(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sessionID := c.Cookies(middleware.SessionCookie); sessionID != "" {
			if err := a.Auth.Logout(c.UserContext(), sessionID); err != nil {
				slog.Warn("Failed to delete session", "error", err)
			}
		}
		c.ClearCookie(middleware.SessionCookie)
		return success(c, fiber.Map{"success": true})
	}
}

// Me returns the current user's session information
func Me(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(middleware.SessionCookie)
		if sessionID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"authenticated": false})
		}

		sess, err := a.Auth.Me(c.UserContext(), sessionID)
		if err != nil {
			c.ClearCookie(middleware.SessionCookie)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"authenticated": false})
		}

		return success(c, fiber.Map{
			"authenticated": true,
			"user":          sessionUser(sess),
		})
	}
}
