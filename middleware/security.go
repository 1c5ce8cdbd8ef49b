package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline' https://accounts.google.com https://www.gstatic.com; " +
	"style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; " +
	"connect-src 'self' https://accounts.google.com; frame-src https://accounts.google.com"

// Security sets response hardening headers. API responses carry live share
// counts and are never cached; HSTS is only sent in production.
func Security(production bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Set("Content-Security-Policy", contentSecurityPolicy)
		if production {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		if strings.HasPrefix(c.Path(), "/api/") {
			c.Set(fiber.HeaderCacheControl, "no-store")
		}
		return c.Next()
	}
}
