package handlers

import (
	"sacrifice-website/app"
	"sacrifice-website/models"

	"github.com/gofiber/fiber/v2"
)

func ListChangeLogs(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logs, err := a.ChangeLogs.List(c.UserContext(), models.ChangeLogFilter{
			TableName: c.Query("table"),
			RowID:     c.Query("row_id"),
			Limit:     c.QueryInt("limit", 100),
			Offset:    c.QueryInt("offset", 0),
		})
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch change logs", err)
		}
		return success(c, fiber.Map{"change_logs": logs})
	}
}
