// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for API latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Rejection reasons recorded by RejectionsTotal.
const (
	ReasonOverloaded      = "overloaded"
	ReasonPayloadTooLarge = "payload_too_large"
	ReasonNoRoute         = "no_route"
)

// Timeout kinds recorded by TimeoutsTotal.
const (
	KindConnect = "connect"
	KindRequest = "request"
)

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	PoolInFlight    prometheus.GaugeFunc
	PoolWaiting     prometheus.GaugeFunc
	RejectionsTotal *prometheus.CounterVec
	TimeoutsTotal   *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors
// registered. poolInFlight and poolWaiting sample the worker pool; pass nil
// to report 0 (useful in tests).
func New(poolInFlight, poolWaiting func() int64) *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sample := func(f func() int64) func() float64 {
		return func() float64 {
			if f == nil {
				return 0
			}
			return float64(f())
		}
	}

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_proxy_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_proxy_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "api_proxy_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_proxy_upstream_request_duration_seconds",
			Help:    "Upstream call latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_proxy_upstream_responses_total",
			Help: "Total upstream responses by method and status code.",
		}, []string{"method", "status_code"}),

		PoolInFlight: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "api_proxy_pool_in_flight",
			Help: "Worker slots currently held by in-flight exchanges.",
		}, sample(poolInFlight)),

		PoolWaiting: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "api_proxy_pool_waiting",
			Help: "Exchanges queued for a worker slot.",
		}, sample(poolWaiting)),

		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_proxy_rejections_total",
			Help: "Requests rejected by admission control, by reason.",
		}, []string{"reason"}),

		TimeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_proxy_timeouts_total",
			Help: "Exchanges aborted by a deadline, by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.PoolInFlight,
		m.PoolWaiting,
		m.RejectionsTotal,
		m.TimeoutsTotal,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}
