package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"api-proxy-go/internal/config"
	"api-proxy-go/internal/metrics"
	"api-proxy-go/internal/timeout"
)

func newTestClient(m *metrics.Metrics) *UpstreamClient {
	cfg := &config.Config{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewUpstreamClient(cfg, timeout.New(time.Second, 0), logger, m)
}

func TestDoStream_RelaysRequestAndResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"q":1}` {
			t.Errorf("body = %q", body)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("accepted"))
	}))
	defer upstream.Close()

	c := newTestClient(nil)

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	resp, err := c.DoStream(context.Background(), http.MethodPost, upstream.URL, header, strings.NewReader(`{"q":1}`))
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "accepted" {
		t.Errorf("body = %q, want %q", body, "accepted")
	}
}

func TestDoStream_ContextCancelAborts(t *testing.T) {
	started := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer upstream.Close()

	c := newTestClient(nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.DoStream(ctx, http.MethodGet, upstream.URL, http.Header{}, nil)
	if err == nil {
		t.Fatal("DoStream() expected error after context cancellation")
	}
}

func TestDo_RecordsUpstreamMetrics(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	m := metrics.New(nil, nil)
	c := newTestClient(m)

	resp, err := c.DoStream(context.Background(), http.MethodGet, upstream.URL, http.Header{}, nil)
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}
	_ = resp.Body.Close()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "api_proxy_upstream_responses_total" {
			for _, metric := range f.GetMetric() {
				if metric.GetCounter().GetValue() > 0 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected api_proxy_upstream_responses_total to be recorded")
	}
}
