package router // package router registers the HTTP routes of the reservation API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driesverstreepen/studio-reservations/internal/handler"
)

// RegisterRoutes registers routes that need no authentication: the health
// check and, when enabled, the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, metricsEnabled bool) {
	e.GET("/healthz", handler.Health(db))
	if metricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}
