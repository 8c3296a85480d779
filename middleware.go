package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SessionContextKey is the fiber locals key holding the validated claims.
const SessionContextKey = "session"

// RequireSession validates the request token and stores the claims in the
// request locals and the request context. The token is looked up in the
// Authorization header, the auth cookie, and the query string, in that order.
func RequireSession(auther *Auther, cfg Config, errorHandler func(*fiber.Ctx, error) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := resolveRequestToken(c, cfg.GetCookieName())
		if token == "" {
			return errorHandler(c, ErrTokenMalformed)
		}

		claims, err := auther.SessionFromToken(token)
		if err != nil {
			return errorHandler(c, err)
		}

		c.Locals(SessionContextKey, claims)
		c.SetUserContext(WithSession(c.UserContext(), claims))

		return c.Next()
	}
}

// GetSession retrieves the claims stored by RequireSession.
func GetSession(c *fiber.Ctx) (*SessionClaims, error) {
	claims, ok := c.Locals(SessionContextKey).(*SessionClaims)
	if !ok || claims == nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// resolveRequestToken looks for the session token in the Authorization header,
// the auth cookie, and finally the query string.
func resolveRequestToken(c *fiber.Ctx, cookieName string) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		if token, found := strings.CutPrefix(header, "Bearer "); found {
			return strings.TrimSpace(token)
		}
	}

	if token := c.Cookies(cookieName); token != "" {
		return token
	}

	return c.Query(cookieName)
}
