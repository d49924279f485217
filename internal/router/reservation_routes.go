package router

import (
	"github.com/labstack/echo/v4"

	"github.com/driesverstreepen/studio-reservations/internal/handler"
	"github.com/driesverstreepen/studio-reservations/internal/middleware"
)

// RegisterReservations registers the credit reservation endpoints under
// /v1.  The session catalog is public and goes through the response cache;
// balances and reservations require a member token, and reserving is rate
// limited per member.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	e.GET("/v1/offerings/:id/sessions", h.Sessions, cache)

	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("authenticated"),
	)
	g.GET("/organizations/:id/credit-pools", h.Balance)
	g.POST("/offerings/:id/reservations", h.Reserve, limit)
}
