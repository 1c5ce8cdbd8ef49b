package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// quietPaths are polled by probes and scrapers; they log at debug level
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// requestID reuses a well-formed X-Request-ID from a proxy, otherwise mints one
func requestID(c *fiber.Ctx) string {
	if incoming := c.Get(fiber.HeaderXRequestID); incoming != "" {
		if _, err := uuid.Parse(incoming); err == nil {
			return incoming
		}
	}
	return uuid.New().String()
}

func StructuredLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := requestID(c)

		c.Locals("requestID", id)
		c.Set(fiber.HeaderXRequestID, id)

		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("request_id", id),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("route", c.Route().Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}
		if userID := GetUserID(c); userID != "" {
			attrs = append(attrs, slog.String("user_id", userID))
		}

		level, msg := slog.LevelInfo, "request completed"
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level, msg = slog.LevelError, "request error"
		case status >= 500:
			level, msg = slog.LevelError, "server error"
		case status == fiber.StatusTooManyRequests:
			level, msg = slog.LevelWarn, "rate limited"
		case status >= 400:
			level, msg = slog.LevelWarn, "client error"
		case quietPaths[c.Path()]:
			level = slog.LevelDebug
		}
		logger.LogAttrs(c.UserContext(), level, msg, attrs...)

		return err
	}
}
