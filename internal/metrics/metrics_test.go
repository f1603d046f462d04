package metrics

import (
	"testing"
)

func TestNew_GathersMetrics(t *testing.T) {
	m := New(nil, nil)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	// Should include at least Go runtime and process collectors.
	if len(families) == 0 {
		t.Fatal("expected non-empty metric families from Gather()")
	}

	// Verify our custom metrics exist by incrementing one and gathering again.
	m.RequestsTotal.WithLabelValues("GET", "200", "/openai").Inc()
	m.RejectionsTotal.WithLabelValues(ReasonOverloaded).Inc()
	m.TimeoutsTotal.WithLabelValues(KindConnect).Inc()

	families, err = m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"api_proxy_http_requests_total": false,
		"api_proxy_rejections_total":    false,
		"api_proxy_timeouts_total":      false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %s in gathered metrics", name)
		}
	}
}

func TestNew_PoolGauges(t *testing.T) {
	inFlight := int64(3)
	waiting := int64(7)
	m := New(func() int64 { return inFlight }, func() int64 { return waiting })

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	got := map[string]float64{}
	for _, f := range families {
		switch f.GetName() {
		case "api_proxy_pool_in_flight", "api_proxy_pool_waiting":
			got[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
		}
	}

	if got["api_proxy_pool_in_flight"] != 3 {
		t.Errorf("pool_in_flight = %v, want 3", got["api_proxy_pool_in_flight"])
	}
	if got["api_proxy_pool_waiting"] != 7 {
		t.Errorf("pool_waiting = %v, want 7", got["api_proxy_pool_waiting"])
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"PUT", "PUT"},
		{"DELETE", "DELETE"},
		{"PATCH", "PATCH"},
		{"HEAD", "HEAD"},
		{"OPTIONS", "OPTIONS"},
		{"XYZZY", "other"},
		{"get", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		if got := NormalizeMethod(tt.method); got != tt.want {
			t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.method, got, tt.want)
		}
	}
}
