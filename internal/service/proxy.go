// Package service implements the core forwarding logic of the proxy.
package service

import (
	"io"
	"log/slog"
	"net/http"

	"api-proxy-go/internal/client"
	"api-proxy-go/internal/config"
	"api-proxy-go/internal/model"
	"api-proxy-go/internal/routing"
	"api-proxy-go/internal/timeout"
)

// ProxyService resolves routes and relays exchanges between a client and
// its upstream. Each exchange exclusively owns its request body and upstream
// response body; the service shares only immutable state across exchanges.
type ProxyService struct {
	client   *client.UpstreamClient
	routes   *routing.Table
	governor *timeout.Governor
	logger   *slog.Logger
	allowed  map[string]bool
}

// NewProxyService creates a ProxyService. Extra allowed request headers from
// the config are merged into the built-in allowlist.
func NewProxyService(c *client.UpstreamClient, routes *routing.Table, gov *timeout.Governor, cfg *config.Config, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		client:   c,
		routes:   routes,
		governor: gov,
		logger:   logger.With("component", "proxy_service"),
		allowed:  buildAllowlist(cfg.Upstream.ExtraAllowedHeaders),
	}
}

// Forward resolves the upstream target for pr, relays the request under the
// configured deadlines, and returns the upstream response with hop-by-hop
// headers stripped. The response body streams directly from the upstream;
// the caller must close it, which also releases the request deadline.
//
// Errors are classified into the proxy taxonomy: routing.ErrNoRoute,
// timeout.ErrConnectTimeout, timeout.ErrRequestTimeout, or the underlying
// transport error for upstream failures.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target, err := s.routes.Resolve(pr.Path)
	if err != nil {
		return nil, err
	}

	upstreamURL := target.URL(pr.Query)
	header := s.forwardHeaders(pr)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"route", target.Prefix,
		"upstream_host", target.Base.Host,
	)

	ctx, cancel := s.governor.Bound(pr.Ctx)

	resp, err := s.client.DoStream(ctx, pr.Method, upstreamURL, header, pr.Body)
	if err != nil {
		cancel()
		return nil, s.governor.Classify(err)
	}

	resp.Header = stripHopByHop(resp.Header)
	// The request deadline covers the response stream too: cancel only
	// fires once the caller closes the body.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose ties a context cancel func to the response body lifetime.
type cancelOnClose struct {
	io.ReadCloser
	cancel func()
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// forwardHeaders builds the upstream request header set: allowlisted client
// headers plus the forwarding headers added by this hop.
func (s *ProxyService) forwardHeaders(pr *model.ProxyRequest) http.Header {
	dst := filterRequestHeaders(pr.Header, s.allowed)
	appendForwarded(dst, pr.Header, pr.RemoteAddr, pr.Scheme)
	return dst
}
