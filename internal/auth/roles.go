package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/helpdeskhq/support-desk/pkg/util/errorutil"
)

// RequireAdmin ensures the caller holds the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !identity.IsAdmin() {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}
