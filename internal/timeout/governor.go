// Package timeout enforces connect and end-to-end request deadlines.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrConnectTimeout indicates the upstream connection was not established
// within the configured connect deadline.
var ErrConnectTimeout = errors.New("upstream connect timed out")

// ErrRequestTimeout indicates the full request/response cycle exceeded the
// configured request deadline.
var ErrRequestTimeout = errors.New("request deadline exceeded")

// Governor holds the two proxy deadlines. The connect deadline bounds
// upstream connection establishment (applied via the transport's dialer);
// the request deadline bounds the whole exchange, body read through response
// fully written (applied as a context deadline). The request deadline
// encompasses the connect deadline: a connect failure inside the request
// window still aborts the whole exchange.
//
// A zero or negative duration disables that bound.
type Governor struct {
	connect time.Duration
	request time.Duration
}

// New creates a Governor with the given connect and request deadlines.
func New(connect, request time.Duration) *Governor {
	return &Governor{connect: connect, request: request}
}

// Connect returns the connect deadline, or 0 when disabled.
func (g *Governor) Connect() time.Duration {
	if g.connect <= 0 {
		return 0
	}
	return g.connect
}

// Request returns the request deadline, or 0 when disabled.
func (g *Governor) Request() time.Duration {
	if g.request <= 0 {
		return 0
	}
	return g.request
}

// Bound derives a context carrying the request deadline. When the request
// bound is disabled it returns ctx unchanged with a no-op cancel. The cancel
// func must be called once the exchange terminates, on every exit path.
func (g *Governor) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.request <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.request)
}

// Classify maps a transport error onto the timeout taxonomy: dial timeouts
// become ErrConnectTimeout, context deadline expiry becomes
// ErrRequestTimeout, anything else passes through unchanged.
func (g *Governor) Classify(err error) error {
	if err == nil {
		return nil
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && opErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrRequestTimeout, err)
	}

	return err
}
