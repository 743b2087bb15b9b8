// Package metrics provides Prometheus collectors for the file server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder 持有注册在同一 Registry 上的全部指标；nil Recorder 的方法均为空操作。
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseBytes   *prometheus.CounterVec
	streamFailures  prometheus.Counter
}

// New registers the collectors on reg.
func New(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anydoor_requests_total",
				Help: "Total number of served requests by outcome",
			},
			[]string{"outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "anydoor_request_duration_seconds",
				Help:    "Time to decide and start a response, in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		responseBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anydoor_response_bytes_total",
				Help: "Body bytes written to clients by content coding",
			},
			[]string{"encoding"},
		),
		streamFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "anydoor_stream_failures_total",
				Help: "Responses aborted while streaming the body",
			},
		),
	}
}

// Observe records one finished request.
func (r *Recorder) Observe(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(outcome).Inc()
	r.requestDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddBytes 累加写出的字节数，encoding 为空时记为 identity。
func (r *Recorder) AddBytes(encoding string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	if encoding == "" {
		encoding = "identity"
	}
	r.responseBytes.WithLabelValues(encoding).Add(float64(n))
}

// StreamFailed counts a body stream that ended with an error.
func (r *Recorder) StreamFailed() {
	if r == nil {
		return
	}
	r.streamFailures.Inc()
}

// Handler returns the Prometheus exposition handler for the injected registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
