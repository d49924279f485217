package middleware // middleware holds the Echo middleware shared by all routes

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/driesverstreepen/studio-reservations/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued by the identity provider and injects its subject and role into the
// request context.  Handlers read them via UserID(c) and c.Get("role").  The
// secret must match the provider's signing secret.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			sub, role, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(userIDKey, sub)
			c.Set(roleKey, role)
			return next(c)
		}
	}
}
