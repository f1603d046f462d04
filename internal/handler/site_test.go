package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIndex_ListsRoutes(t *testing.T) {
	app := newTestApp(t, "http://127.0.0.1:1", testAppOptions{})

	for _, path := range []string{"/", "/index.html"} {
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		rec := httptest.NewRecorder()
		app.echo.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), "/api") {
			t.Errorf("GET %s body does not list the /api route", path)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("GET %s Content-Type = %q, want text/html", path, ct)
		}
	}
}

func TestRobots_DisallowsAll(t *testing.T) {
	app := newTestApp(t, "http://127.0.0.1:1", testAppOptions{})

	req := httptest.NewRequest(http.MethodGet, "/robots.txt", http.NoBody)
	rec := httptest.NewRecorder()
	app.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != "User-agent: *\nDisallow: /\n" {
		t.Errorf("body = %q, want robots disallow-all", got)
	}
}
