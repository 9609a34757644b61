package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// UserContextMiddleware copies the identity the Gateway resolved into locals.
// Anonymous requests get an empty user id.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			r = strings.ToLower(strings.TrimSpace(r))
			if r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)
		return c.Next()
	}
}

// RequireUser rejects requests without a user id.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, _ := c.Locals("user_id").(string); id == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}
		return c.Next()
	}
}

// HasRole reports whether the current request carries any of roles.
func HasRole(c *fiber.Ctx, roles ...string) bool {
	have, _ := c.Locals("user_roles").([]string)
	for _, h := range have {
		for _, r := range roles {
			if h == r {
				return true
			}
		}
	}
	return false
}

// RequireRole allows the request through if the user has any of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !HasRole(c, roles...) {
			log.Printf("🚫 [USER_CTX] %v required for %s", roles, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "insufficient role",
				"cause": "requires one of: " + strings.Join(roles, ", "),
			})
		}
		return c.Next()
	}
}
