package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"api-proxy-go/internal/config"
	"api-proxy-go/internal/metrics"
	"api-proxy-go/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
//
// Health, status, index, robots and metrics are fixed routes matched before
// the catch-all proxy route, and only the proxy route carries body
// admission, so reserved paths bypass the pool and the body limit entirely.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, health *HealthHandler, site *SiteHandler, m *metrics.Metrics, cfg *config.Config) {
	e.GET("/", site.Index)
	e.GET("/index.html", site.Index)
	e.GET("/robots.txt", site.Robots)
	e.GET("/health", health.Health)
	e.HEAD("/health", health.Health)
	e.GET("/proxy/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(
			promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		))
	}

	e.Any("/*", proxy.Handle, middleware.BodyAdmission(cfg.MaxBodyBytes(), m))
}
