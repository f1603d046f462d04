package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"api-proxy-go/internal/limits"
	"api-proxy-go/internal/metrics"
	"api-proxy-go/internal/model"
	"api-proxy-go/internal/pool"
	"api-proxy-go/internal/routing"
	"api-proxy-go/internal/service"
	"api-proxy-go/internal/timeout"
)

// ProxyHandler dispatches proxied exchanges: worker-pool admission, then
// forwarding through the ProxyService, then streaming the upstream response
// back to the client.
type ProxyHandler struct {
	service *service.ProxyService
	pool    *pool.Pool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler. The metrics parameter is optional;
// pass nil to disable rejection and timeout counters.
func NewProxyHandler(svc *service.ProxyService, p *pool.Pool, m *metrics.Metrics, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		pool:    p,
		metrics: m,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle proxies the request to its upstream and streams the response back.
//
// A worker slot is acquired before any forwarding work and released when the
// exchange terminates, on every exit path. Requests beyond the pool's
// backlog are rejected with 503 instead of queuing unboundedly.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	slot, err := h.pool.Acquire(req.Context())
	if err != nil {
		return h.mapError(c, err)
	}
	defer slot.Release()

	pr := &model.ProxyRequest{
		Ctx:        req.Context(),
		Method:     req.Method,
		Path:       req.URL.Path,
		Query:      req.URL.Query(),
		Header:     req.Header,
		Body:       req.Body,
		RemoteAddr: req.RemoteAddr,
		Scheme:     c.Scheme(),
		ReceivedAt: time.Now(),
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Copy response headers verbatim (hop-by-hop already stripped).
	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Stream the upstream body directly to the client. If io.Copy fails
	// mid-stream (e.g. client disconnect, network error), the HTTP status
	// code has already been sent, so the client receives a truncated
	// response with the original status. This is an inherent trade-off of
	// streaming proxies — we log the error for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

// mapError translates per-exchange errors into client-facing statuses.
// None of these crash the process; each terminates only its own exchange.
func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("proxy error",
		"err", err,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
	)

	switch {
	case errors.Is(err, pool.ErrOverloaded):
		h.countRejection(metrics.ReasonOverloaded)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "proxy is at capacity, retry later",
		})

	case errors.Is(err, routing.ErrNoRoute):
		h.countRejection(metrics.ReasonNoRoute)
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no upstream route for path",
		})

	case errors.Is(err, limits.ErrPayloadTooLarge):
		h.countRejection(metrics.ReasonPayloadTooLarge)
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": "request body too large",
		})

	case errors.Is(err, timeout.ErrConnectTimeout):
		h.countTimeout(metrics.KindConnect)
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream connect timed out",
		})

	case errors.Is(err, timeout.ErrRequestTimeout):
		h.countTimeout(metrics.KindRequest)
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream request timed out",
		})

	case errors.Is(err, context.Canceled):
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "upstream request failed",
	})
}

func (h *ProxyHandler) countRejection(reason string) {
	if h.metrics != nil {
		h.metrics.RejectionsTotal.WithLabelValues(reason).Inc()
	}
}

func (h *ProxyHandler) countTimeout(kind string) {
	if h.metrics != nil {
		h.metrics.TimeoutsTotal.WithLabelValues(kind).Inc()
	}
}
