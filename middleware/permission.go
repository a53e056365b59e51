package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
)

// RequireRole lets the request through only when the session role is one of
// roles. It must run after Protected.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		for _, allowed := range roles {
			if models.Role(role) == allowed {
				return c.Next()
			}
		}
		return utils.ErrorJSON(c, fiber.StatusForbidden, "You don't have permission to perform this action")
	}
}

// TrainerOnly covers the trainer dashboard routes; admins manage members too.
func TrainerOnly() fiber.Handler {
	return RequireRole(models.RoleTrainer, models.RoleAdmin)
}

func MemberOnly() fiber.Handler {
	return RequireRole(models.RoleMember)
}
