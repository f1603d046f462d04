package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"api-proxy-go/internal/limits"
	"api-proxy-go/internal/metrics"
)

func TestBodyAdmission_DeclaredOversizeRejected(t *testing.T) {
	m := metrics.New(nil, nil)

	e := echo.New()
	handlerCalled := false
	e.POST("/upload", func(c echo.Context) error {
		handlerCalled = true
		return c.NoContent(http.StatusOK)
	}, BodyAdmission(100, m))

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(make([]byte, 500)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if handlerCalled {
		t.Error("handler should not run for an oversized declared body")
	}

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == "api_proxy_rejections_total" {
			for _, metric := range f.GetMetric() {
				if metric.GetCounter().GetValue() == 1 {
					return
				}
			}
		}
	}
	t.Error("expected api_proxy_rejections_total to be incremented")
}

func TestBodyAdmission_WrapsUnknownLengthBody(t *testing.T) {
	e := echo.New()
	var readErr error
	e.POST("/upload", func(c echo.Context) error {
		_, readErr = io.ReadAll(c.Request().Body)
		return c.NoContent(http.StatusOK)
	}, BodyAdmission(100, nil))

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(make([]byte, 500)))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if readErr == nil || !errors.Is(readErr, limits.ErrPayloadTooLarge) {
		t.Errorf("handler body read error = %v, want ErrPayloadTooLarge", readErr)
	}
}

func TestBodyAdmission_UnderLimitPassesThrough(t *testing.T) {
	e := echo.New()
	var got []byte
	e.POST("/upload", func(c echo.Context) error {
		got, _ = io.ReadAll(c.Request().Body)
		return c.NoContent(http.StatusOK)
	}, BodyAdmission(1000, nil))

	payload := bytes.Repeat([]byte("z"), 100)
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !bytes.Equal(got, payload) {
		t.Error("body bytes altered by admission middleware")
	}
}
