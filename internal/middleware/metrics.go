package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the HTTP layer.
//
// WHAT GETS MEASURED?
// Two instruments cover most operational questions:
//   - a counter of requests by method, route pattern, and status
//     ("how much traffic, how many errors?")
//   - a histogram of request durations by route pattern
//     ("how slow, and is it getting slower?")
//
// WHY ROUTE PATTERNS, NOT PATHS?
// Labelling by raw path would create one time series per location ID —
// unbounded label cardinality, which eventually kills the Prometheus server.
// Chi's RouteContext gives us the matched pattern ("/api/locations/{id}")
// instead, so the label set stays small and fixed.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the HTTP metrics and registers them with reg.
//
// WHY TAKE A REGISTERER?
// promauto's package-level constructors use the global default registry and
// panic on duplicate registration — fatal in tests that build more than one
// server. Taking a prometheus.Registerer lets each server own its registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests handled",
			},
			[]string{"method", "route", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
	}
}

// Instrument returns a middleware that records every request against the
// counter and histogram. It must run INSIDE the chi router (via router.Use)
// so the route pattern is populated by the time the handler returns.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		// The pattern is only known AFTER routing, hence reading it post-serve.
		pattern := chiRoutePattern(r)

		m.requests.WithLabelValues(r.Method, pattern, strconv.Itoa(wrapped.statusCode)).Inc()
		m.duration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

// chiRoutePattern extracts the matched route pattern from the request context.
// Requests that never matched a route (404s) fall back to a fixed label so
// they don't explode cardinality either.
func chiRoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
