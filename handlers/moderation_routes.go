package handlers

import (
	"forum-engagement-system/middleware"
	"forum-engagement-system/models"
	"forum-engagement-system/services"
	"forum-engagement-system/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupModerationRoutes(app *fiber.App, moderation *services.ModerationService, v *utils.Validator) {
	app.Get("/report-reasons", func(c *fiber.Ctx) error {
		reasons, err := moderation.ReportReasons(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(reasons)
	})

	app.Post("/reports", middleware.UserContextMiddleware(), middleware.RequireUser(), func(c *fiber.Ctx) error {
		var req struct {
			ReplyID        string `json:"reply_id" validate:"required,uuid"`
			ReasonID       string `json:"reason_id" validate:"required,uuid"`
			AdditionalInfo string `json:"additional_info" validate:"max=2000"`
		}
		if err := bindJSON(c, v, &req); err != nil {
			return respondError(c, err)
		}
		report, err := moderation.CreateReport(c.UserContext(), currentUser(c), req.ReplyID, req.ReasonID, req.AdditionalInfo)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(report)
	})

	staff := []fiber.Handler{
		middleware.UserContextMiddleware(),
		middleware.RequireUser(),
		middleware.RequireRole(middleware.RoleModerator, middleware.RoleAdmin),
	}

	app.Get("/admin/reports", append(staff, func(c *fiber.Ctx) error {
		reports, err := moderation.ListReports(c.UserContext(), models.ReportStatus(c.Query("status")))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(reports)
	})...)

	app.Patch("/admin/reports/:id", append(staff, func(c *fiber.Ctx) error {
		var req struct {
			Status string `json:"status" validate:"required,oneof=reviewed resolved dismissed"`
		}
		if err := bindJSON(c, v, &req); err != nil {
			return respondError(c, err)
		}
		report, err := moderation.ResolveReport(c.UserContext(), c.Params("id"), models.ReportStatus(req.Status), currentUser(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	})...)
}
