package service

import (
	"net"
	"net/http"
	"strings"
)

// defaultAllowedRequestHeaders are the client request headers forwarded
// upstream. Anything not listed here (or in upstream.extra_allowed_headers)
// is dropped, so client cookies and proxy-local headers never leak upstream.
var defaultAllowedRequestHeaders = []string{
	"Accept",
	"Accept-Encoding",
	"Accept-Language",
	"Authorization",
	"Cache-Control",
	"Content-Length",
	"Content-Type",
	"User-Agent",
	"X-Api-Key",
	"X-Goog-Api-Key",
}

// hopByHopHeaders are connection-level headers that must not traverse the
// proxy in either direction (RFC 7230 §6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func buildAllowlist(extra []string) map[string]bool {
	allowed := make(map[string]bool, len(defaultAllowedRequestHeaders)+len(extra))
	for _, k := range defaultAllowedRequestHeaders {
		allowed[strings.ToLower(k)] = true
	}
	for _, k := range extra {
		allowed[strings.ToLower(k)] = true
	}
	return allowed
}

// filterRequestHeaders copies the allowlisted headers from src.
func filterRequestHeaders(src http.Header, allowed map[string]bool) http.Header {
	dst := make(http.Header, len(allowed))
	for key, vals := range src {
		if allowed[strings.ToLower(key)] {
			dst[http.CanonicalHeaderKey(key)] = vals
		}
	}
	return dst
}

// stripHopByHop returns a copy of h without hop-by-hop headers, including
// any header named by the Connection header itself.
func stripHopByHop(h http.Header) http.Header {
	drop := make(map[string]bool, len(hopByHopHeaders))
	for _, k := range hopByHopHeaders {
		drop[k] = true
	}
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				drop[http.CanonicalHeaderKey(name)] = true
			}
		}
	}

	dst := make(http.Header, len(h))
	for key, vals := range h {
		if !drop[http.CanonicalHeaderKey(key)] {
			dst[key] = vals
		}
	}
	return dst
}

// appendForwarded records this hop in X-Forwarded-For and sets
// X-Forwarded-Proto to the scheme the client used with the proxy.
func appendForwarded(dst http.Header, src http.Header, remoteAddr, scheme string) {
	clientIP := remoteAddr
	if ip, _, err := net.SplitHostPort(remoteAddr); err == nil {
		clientIP = ip
	}
	if clientIP != "" {
		if prior := src.Get("X-Forwarded-For"); prior != "" {
			dst.Set("X-Forwarded-For", prior+", "+clientIP)
		} else {
			dst.Set("X-Forwarded-For", clientIP)
		}
	}
	if scheme != "" {
		dst.Set("X-Forwarded-Proto", scheme)
	}
}
