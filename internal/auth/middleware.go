package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/support-desk/internal/domain"
	apperrors "github.com/helpdeskhq/support-desk/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// AuthMiddleware validates bearer tokens and attaches the caller identity.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(identityKey, claims.Identity())
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}
