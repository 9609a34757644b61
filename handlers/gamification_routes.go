package handlers

import (
	"forum-engagement-system/middleware"
	"forum-engagement-system/services"
	"forum-engagement-system/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupGamificationRoutes(
	app *fiber.App,
	gamification *services.GamificationService,
	leaderboard *services.LeaderboardService,
	users *services.UserDirectory,
	streamAuth fiber.Handler,
	v *utils.Validator,
) {
	// EventSource cannot send gateway identity headers, so the stream has its own auth.
	app.Get("/user/badges/stream", streamAuth, middleware.RequireUser(), gamification.Badges.StreamUnlocksSSE)

	app.Get("/users/search", func(c *fiber.Ctx) error {
		res, err := users.Search(c.UserContext(), c.Query("q"), c.QueryInt("limit", 50))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	g := app.Group("/gamification", middleware.UserContextMiddleware())

	g.Get("/me", middleware.RequireUser(), func(c *fiber.Ctx) error {
		res, err := gamification.UserGamification(c.UserContext(), currentUser(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	g.Get("/users/:id", func(c *fiber.Ctx) error {
		res, err := gamification.UserGamification(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	g.Get("/leaderboard", func(c *fiber.Ctx) error {
		entries, err := leaderboard.Top(c.UserContext(), c.QueryInt("limit", 10))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entries)
	})

	// Catalog for anonymous readers, catalog merged with progress otherwise.
	g.Get("/badges", func(c *fiber.Ctx) error {
		if userID := currentUser(c); userID != "" {
			views, err := gamification.Badges.UserBadges(c.UserContext(), userID)
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(views)
		}
		badges, err := services.ActiveBadges(c.UserContext(), gamification.DB)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(badges)
	})

	g.Get("/badges/categories", func(c *fiber.Ctx) error {
		badges, err := services.ActiveBadges(c.UserContext(), gamification.DB)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(services.BadgesByCategory(badges))
	})

	g.Get("/levels", func(c *fiber.Ctx) error {
		levels, err := services.ActiveLevels(c.UserContext(), gamification.DB)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(levels)
	})

	g.Post("/streak", middleware.RequireUser(), func(c *fiber.Ctx) error {
		res, err := gamification.UpdateDailyStreak(c.UserContext(), currentUser(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	// Roles are checked per route: group middleware covers the whole /admin prefix.
	adminOnly := []fiber.Handler{middleware.UserContextMiddleware(), middleware.RequireUser(), middleware.RequireRole(middleware.RoleAdmin)}

	app.Post("/admin/xp/grant", append(adminOnly, func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id" validate:"required"`
			XP     int64  `json:"xp" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		if err := bindJSON(c, v, &req); err != nil {
			return respondError(c, err)
		}
		reason := req.Reason
		if reason == "" {
			reason = "admin_grant"
		}
		ul, err := gamification.Progression.AwardXP(c.UserContext(), req.UserID, req.XP, reason)
		if err != nil {
			return respondError(c, err)
		}
		leaderboard.Invalidate(c.UserContext())
		return c.JSON(fiber.Map{
			"message":  "XP granted successfully",
			"user_id":  req.UserID,
			"xp":       req.XP,
			"total_xp": ul.XP,
			"level":    ul.Level,
		})
	})...)
}
