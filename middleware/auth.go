package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

// TokenVerifier is the part of the token service the middleware needs.
type TokenVerifier interface {
	ExtractTokenFromHeader(authHeader string) (string, error)
	VerifyJWTToken(token string) (string, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequiredAuth rejects a missing or malformed bearer with 401 and a bearer
// that fails verification with 403. No user lookup is made.
func (m *AuthMiddleware) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := m.verifier.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", err.Error())
		}

		userID, err := m.verifier.VerifyJWTToken(token)
		if err != nil || userID == "" {
			return shared.ResponseJSON(c, http.StatusForbidden, "Forbidden", "Invalid or expired token")
		}

		c.Locals(shared.UserID, userID)
		return c.Next()
	}
}

// OptionalAuth attaches the identity when a valid bearer is present and
// otherwise lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := m.verifier.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return c.Next()
		}
		if userID, err := m.verifier.VerifyJWTToken(token); err == nil && userID != "" {
			c.Locals(shared.UserID, userID)
		}
		return c.Next()
	}
}

// UserIDFrom returns the authenticated user id, or "" for anonymous requests.
func UserIDFrom(c *fiber.Ctx) string {
	if id, ok := c.Locals(shared.UserID).(string); ok {
		return id
	}
	return ""
}
