package handlers

import (
	"errors"
	"log"

	"forum-engagement-system/middleware"
	"forum-engagement-system/services"
	"forum-engagement-system/utils"

	"github.com/gofiber/fiber/v2"
)

// bodyError is a request body that failed to parse or validate.
type bodyError struct {
	cause  error
	fields map[string]string
}

func (e *bodyError) Error() string { return e.cause.Error() }

// bindJSON parses the body into dst and runs its validate tags.
func bindJSON(c *fiber.Ctx, v *utils.Validator, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return &bodyError{cause: err}
	}
	if err := v.ValidateStruct(dst); err != nil {
		return &bodyError{cause: err, fields: utils.FormatValidationErrors(err)}
	}
	return nil
}

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation: fiber.StatusBadRequest,
	services.KindConflict:   fiber.StatusConflict,
	services.KindNotFound:   fiber.StatusNotFound,
	services.KindPermission: fiber.StatusForbidden,
}

// respondError maps typed service errors to status codes. Anything untyped
// is a 500.
func respondError(c *fiber.Ctx, err error) error {
	var be *bodyError
	if errors.As(err, &be) {
		body := fiber.Map{"error": "invalid request body", "cause": be.cause.Error()}
		if len(be.fields) > 0 {
			body["error"] = "validation failed"
			body["fields"] = be.fields
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	var se *services.Error
	if errors.As(err, &se) {
		return c.Status(kindStatus[se.Kind]).JSON(fiber.Map{
			"error": se.Message,
			"code":  se.Code,
		})
	}

	log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
		"cause": err.Error(),
	})
}

func currentUser(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// authed prefixes h with the identity middlewares for signed-in routes.
func authed(h fiber.Handler) []fiber.Handler {
	return []fiber.Handler{middleware.UserContextMiddleware(), middleware.RequireUser(), h}
}
