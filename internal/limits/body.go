// Package limits enforces the maximum inbound request body size.
package limits

import (
	"errors"
	"io"
)

// ErrPayloadTooLarge is returned when a request body exceeds the configured
// limit, either up front via Content-Length or mid-stream as bytes arrive.
var ErrPayloadTooLarge = errors.New("request body exceeds configured size limit")

// Admit wraps body in a size-checked reader enforcing limit bytes.
//
// If contentLength declares more than limit bytes, Admit fails immediately
// without reading the body. Otherwise the returned reader counts bytes as
// they arrive and fails with ErrPayloadTooLarge the moment the cumulative
// total exceeds limit, pulling no further bytes from the source. Chunked
// and unknown-length bodies (contentLength < 0) are checked incrementally.
//
// A limit of 0 or less disables the check and returns body unchanged.
func Admit(body io.ReadCloser, contentLength, limit int64) (io.ReadCloser, error) {
	if limit <= 0 {
		return body, nil
	}
	if contentLength > limit {
		return nil, ErrPayloadTooLarge
	}
	return &boundedReader{src: body, limit: limit}, nil
}

// boundedReader reads at most limit+1 bytes from src: one byte past the
// limit is enough to prove the body is oversized without buffering it.
type boundedReader struct {
	src      io.ReadCloser
	limit    int64
	count    int64
	exceeded bool
}

func (r *boundedReader) Read(p []byte) (int, error) {
	if r.exceeded {
		return 0, ErrPayloadTooLarge
	}

	if allowed := r.limit - r.count + 1; int64(len(p)) > allowed {
		p = p[:allowed]
	}

	n, err := r.src.Read(p)
	r.count += int64(n)
	if r.count > r.limit {
		r.exceeded = true
		return n, ErrPayloadTooLarge
	}
	return n, err
}

func (r *boundedReader) Close() error {
	return r.src.Close()
}
