package handlers

import (
	"forum-engagement-system/middleware"
	"forum-engagement-system/services"
	"forum-engagement-system/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupForumRoutes(app *fiber.App, forum *services.ForumService, v *utils.Validator) {
	// reading replies works anonymously; the viewer only matters for hidden replies
	app.Get("/topics/:id/replies", middleware.UserContextMiddleware(), func(c *fiber.Ctx) error {
		tree, err := forum.GetReplyTree(c.UserContext(), c.Params("id"), currentUser(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(tree)
	})

	app.Post("/topics", authed(func(c *fiber.Ctx) error {
		var req struct {
			Title   string   `json:"title" validate:"required,max=200"`
			Content string   `json:"content"`
			Tags    []string `json:"tags" validate:"max=5,dive,max=50"`
		}
		if err := bindJSON(c, v, &req); err != nil {
			return respondError(c, err)
		}
		topic, rewards, err := forum.CreateTopic(c.UserContext(), currentUser(c), req.Title, req.Content, req.Tags)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"topic":        topic,
			"gamification": rewards,
		})
	})...)

	app.Post("/topics/:id/like", authed(func(c *fiber.Ctx) error {
		res, err := forum.LikeTopic(c.UserContext(), currentUser(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})...)

	app.Post("/topics/:id/bookmark", authed(func(c *fiber.Ctx) error {
		res, err := forum.BookmarkTopic(c.UserContext(), currentUser(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"gamification": res})
	})...)

	app.Post("/topics/:id/replies", authed(func(c *fiber.Ctx) error {
		var req struct {
			Content  string  `json:"content" validate:"required"`
			ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
		}
		if err := bindJSON(c, v, &req); err != nil {
			return respondError(c, err)
		}
		reply, rewards, err := forum.CreateReply(c.UserContext(), currentUser(c), c.Params("id"), req.ParentID, req.Content)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"reply":        reply,
			"gamification": rewards,
		})
	})...)

	app.Post("/replies/:id/like", authed(func(c *fiber.Ctx) error {
		res, err := forum.LikeReply(c.UserContext(), currentUser(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})...)

	app.Delete("/replies/:id", authed(func(c *fiber.Ctx) error {
		n, err := forum.DeleteReply(c.UserContext(), currentUser(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"deleted": n})
	})...)
}
