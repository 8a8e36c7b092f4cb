// Package metrics instruments the daemon with Prometheus counters and
// latency histograms.  Instruments are slow and serialized, so request
// latency against each device endpoint is the number the bench actually
// watches.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the daemon's metric families.
type Collector struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	ops      *prometheus.CounterVec
	opErrors *prometheus.CounterVec
}

// New builds a collector with its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instrgraph_requests_total",
			Help: "HTTP requests served, by method, path, and status code.",
		}, []string{"method", "path", "code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "instrgraph_request_duration_seconds",
			Help: "HTTP request latency; instrument I/O dominates.",
			// bench instruments respond anywhere from ms to tens of seconds
			Buckets: []float64{.005, .025, .1, .25, 1, 2.5, 10, 30},
		}, []string{"method", "path"}),
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instrgraph_operations_total",
			Help: "Device operations performed, by device and operation.",
		}, []string{"device", "op"}),
		opErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instrgraph_operation_errors_total",
			Help: "Device operations that returned an error.",
		}, []string{"device", "op"}),
	}
}

// ObserveOp returns a hook recording one device operation, e.g. "read" or
// "trigger", and whether it failed.
func (c *Collector) ObserveOp(device string) func(op string, err error) {
	return func(op string, err error) {
		c.ops.WithLabelValues(device, op).Inc()
		if err != nil {
			c.opErrors.WithLabelValues(device, op).Inc()
		}
	}
}

// Handler serves the collector's registry, mounted at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps next, recording a count and latency for every request.
func (c *Collector) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start).Seconds()
		c.requests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.code)).Inc()
		c.latency.WithLabelValues(r.Method, r.URL.Path).Observe(elapsed)
	})
}
