package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// RequireRole ensures the principal acts as one of the allowed roles. With no
// roles configured it only requires authentication.
func RequireRole(allowed ...int64) fiber.Handler {
	allowedSet := make(map[int64]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Actor.RoleID]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
