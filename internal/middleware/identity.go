package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	userIDKey = "user_id"
	roleKey   = "role"
)

// UserID returns the authenticated member id, or "" when the request did
// not pass through JWTAuth.
func UserID(c echo.Context) string {
	if v, ok := c.Get(userIDKey).(string); ok {
		return v
	}
	return ""
}
