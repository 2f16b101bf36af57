package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"acceptapi/internal/auth"
)

// OperatorLocalKey holds the authenticated operator name in Fiber locals.
const OperatorLocalKey = "operator"

// OperatorAuth requires an operator bearer token signed with secret.
// Failures surface as 401 fiber errors for the global error handler.
func OperatorAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		operator, err := auth.ParseToken(strings.TrimSpace(raw), secret)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid bearer token")
		}
		c.Locals(OperatorLocalKey, operator)
		return c.Next()
	}
}
