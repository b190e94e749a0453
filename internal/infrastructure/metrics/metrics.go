// Package metrics holds the prometheus collectors shared by the backend
// client, the session controller and the viewer server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry every pdqa collector is registered on.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var backendRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Name: "pdqa_backend_requests_total",
	Help: "Requests sent to the query backend, labelled by operation and status",
}, []string{"op", "status"})

var backendLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "pdqa_backend_request_duration_seconds",
	Help:    "Latency of query backend calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"op"})

var pollTicksTotal = factory.NewCounter(prometheus.CounterOpts{
	Name: "pdqa_poll_ticks_total",
	Help: "Status polling ticks that issued a fetch",
})

var activePollTimers = factory.NewGauge(prometheus.GaugeOpts{
	Name: "pdqa_active_poll_timers",
	Help: "Poll timers currently armed",
})

// HTTPRequestsTotal counts viewer server requests by route and status.
var HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Name: "pdqa_viewer_http_requests_total",
	Help: "Total number of viewer requests labelled by path and status",
}, []string{"path", "status"})

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveBackendRequest records one backend round trip.
func ObserveBackendRequest(op, status string, elapsed time.Duration) {
	backendRequestsTotal.WithLabelValues(op, status).Inc()
	backendLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func IncrementPollTicks() {
	pollTicksTotal.Inc()
}

func IncrementActiveTimers() {
	activePollTimers.Inc()
}

func DecrementActiveTimers() {
	activePollTimers.Dec()
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// HTTPStatusRecorder captures the status code written by a handler.
type HTTPStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HTTPStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}
