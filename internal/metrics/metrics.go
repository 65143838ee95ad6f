// Package metrics provides Prometheus instrumentation for the option engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QuotesTotal counts quote requests, partitioned by cache outcome
	// ("hit" or "miss").
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optengine_quotes_total",
		Help: "Total number of quote requests",
	}, []string{"cache"})

	// SolveDuration tracks numeric work by operation: "quote", "intervals",
	// "map", "chart".
	SolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optengine_solve_seconds",
		Help:    "Numeric computation time in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation"})

	// LatticeNodes observes the node count of each solved lattice.
	LatticeNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optengine_lattice_nodes",
		Help:    "Node count of solved lattices",
		Buckets: prometheus.ExponentialBuckets(6, 4, 10),
	})

	// IntervalRequests counts interval probability computations.
	IntervalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optengine_interval_requests_total",
		Help: "Total interval probability computations",
	})

	// LimitRejections counts requests rejected by the work limiter.
	LimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optengine_limit_rejections_total",
		Help: "Requests rejected by the work limiter",
	}, []string{"limit"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optengine_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optengine_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optengine_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	}, []string{"method", "path"})
)

// ObserveSolve records the duration of one numeric operation.
func ObserveSolve(operation string, start time.Time) {
	SolveDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern labels by chi route pattern so path parameters do not
// inflate cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack passes connection takeover through to the wrapped writer. The
// WebSocket upgrade on /api/v1/ws needs it.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
