package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"api-proxy-go/internal/metrics"
	"api-proxy-go/internal/routing"
)

// staticPaths are the fixed routes reported as their own metric label.
var staticPaths = map[string]bool{
	"/":             true,
	"/index.html":   true,
	"/robots.txt":   true,
	"/health":       true,
	"/proxy/status": true,
	"/metrics":      true,
}

// MetricsMiddleware returns an Echo middleware that records Prometheus
// metrics for each inbound request. Path labels are bounded: fixed routes
// map to themselves, proxied paths to their route prefix, everything else
// to "other".
func MetricsMiddleware(m *metrics.Metrics, routes *routing.Table) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()

			err := next(c)

			// Resolve the actual status code. When a handler returns an
			// *echo.HTTPError, the response status hasn't been written yet;
			// Echo's central error handler will do that later. We inspect
			// the error to get the correct code for metrics.
			statusCode := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					statusCode = he.Code
				}
			}

			status := strconv.Itoa(statusCode)
			method := metrics.NormalizeMethod(c.Request().Method)
			route := routeLabel(routes, c.Request().URL.Path)
			duration := time.Since(start).Seconds()

			m.RequestsTotal.WithLabelValues(method, status, route).Inc()
			m.RequestDuration.WithLabelValues(method, status, route).Observe(duration)

			return err
		}
	}
}

func routeLabel(routes *routing.Table, path string) string {
	if staticPaths[path] {
		return path
	}
	return routes.Label(path)
}
