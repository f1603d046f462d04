package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"api-proxy-go/internal/limits"
	"api-proxy-go/internal/metrics"
)

// BodyAdmission returns an Echo middleware enforcing the inbound body limit.
//
// Requests declaring an oversized Content-Length are rejected with 413
// before any body byte is read. Bodies of unknown length are wrapped in a
// counting reader that fails the exchange the moment the limit is crossed,
// so the forwarder stops pulling bytes from the client. The metrics
// parameter is optional; pass nil to disable the rejection counter.
func BodyAdmission(maxBytes int64, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			bounded, err := limits.Admit(req.Body, req.ContentLength, maxBytes)
			if err != nil {
				if m != nil {
					m.RejectionsTotal.WithLabelValues(metrics.ReasonPayloadTooLarge).Inc()
				}
				return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
					"error": "request body too large",
				})
			}

			req.Body = bounded
			return next(c)
		}
	}
}
