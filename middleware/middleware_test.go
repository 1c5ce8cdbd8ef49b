package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sacrifice-website/models"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions map[string]*models.Session

func (s stubSessions) Get(_ context.Context, id string) (*models.Session, error) {
	if id == "broken" {
		return nil, errors.New("db down")
	}
	return s[id], nil
}

func TestAuthChain(t *testing.T) {
	sessions := stubSessions{
		"pending": {UserID: "u1", Email: "p@example.com", Role: models.RoleEditor, Status: models.UserPending},
		"editor":  {UserID: "u2", Email: "e@example.com", Role: models.RoleEditor, Status: models.UserApproved},
		"admin":   {UserID: "u3", Email: "a@example.com", Role: models.RoleAdmin, Status: models.UserApproved},
	}

	app := fiber.New()
	app.Get("/approved", AuthRequired(sessions), RequireApproved(), func(c *fiber.Ctx) error {
		return c.SendString(GetUserEmail(c))
	})
	app.Get("/admin", AuthRequired(sessions), RequireApproved(), RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	})

	tests := []struct {
		name         string
		path         string
		cookie       string
		expectedCode int
	}{
		{name: "No cookie", path: "/approved", expectedCode: http.StatusUnauthorized},
		{name: "Unknown session", path: "/approved", cookie: "gone", expectedCode: http.StatusUnauthorized},
		{name: "Lookup failure", path: "/approved", cookie: "broken", expectedCode: http.StatusInternalServerError},
		{name: "Pending user", path: "/approved", cookie: "pending", expectedCode: http.StatusForbidden},
		{name: "Approved editor", path: "/approved", cookie: "editor", expectedCode: http.StatusOK},
		{name: "Editor on admin route", path: "/admin", cookie: "editor", expectedCode: http.StatusForbidden},
		{name: "Admin", path: "/admin", cookie: "admin", expectedCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.StatusCode)
		})
	}
}

func TestSecurity(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		path       string
		hsts       bool
		noStore    bool
	}{
		{name: "Page in development", path: "/"},
		{name: "API in development", path: "/api/sacrifices", noStore: true},
		{name: "Page in production", production: true, path: "/", hsts: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(Security(tt.production))
			app.Get(tt.path, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)

			assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
			assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "https://accounts.google.com")
			assert.Equal(t, tt.hsts, resp.Header.Get("Strict-Transport-Security") != "")
			assert.Equal(t, tt.noStore, resp.Header.Get("Cache-Control") == "no-store")
		})
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	app := fiber.New()
	app.Use(StructuredLogger(logger))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/sacrifices/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })

	t.Run("Reuses incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sacrifices/x", nil)
		req.Header.Set("X-Request-ID", "4f6c1c7e-8d3b-4b8e-9a51-1f0d6c2b9e10")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		assert.Equal(t, "4f6c1c7e-8d3b-4b8e-9a51-1f0d6c2b9e10", resp.Header.Get("X-Request-ID"))
		assert.Contains(t, buf.String(), "client error")
		assert.Contains(t, buf.String(), "route=/api/sacrifices/:id")
	})

	t.Run("Replaces malformed request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sacrifices/x", nil)
		req.Header.Set("X-Request-ID", "not-a-uuid")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		assert.NotEqual(t, "not-a-uuid", resp.Header.Get("X-Request-ID"))
		assert.Len(t, resp.Header.Get("X-Request-ID"), 36)
	})

	t.Run("Health probes stay quiet", func(t *testing.T) {
		buf.Reset()
		_, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})
}
