package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"api-proxy-go/internal/pool"
	"api-proxy-go/internal/routing"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints. Both are registered
// outside the proxy dispatch chain: they never touch the worker pool, body
// admission, or any upstream, so they respond even when the pool is
// saturated with long-running exchanges.
type HealthHandler struct {
	pool    *pool.Pool
	routes  *routing.Table
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(p *pool.Pool, routes *routing.Table, v Version) *HealthHandler {
	return &HealthHandler{pool: p, routes: routes, version: v}
}

// Health reports process liveness only, not upstream health.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "api-proxy",
	})
}

// Status returns proxy status information including pool occupancy.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   string(h.version),
		"routes":    h.routes.Len(),
		"workers":   h.pool.Capacity(),
		"in_flight": h.pool.InFlight(),
		"waiting":   h.pool.Waiting(),
	})
}
