package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sajjad-MoBe/NumAPI/internal/app"
	"github.com/sajjad-MoBe/NumAPI/internal/compute"
)

const metricsNamespace = "numapi"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Request metrics
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
	inFlight        prometheus.Gauge
}

// NewMetrics registers the request metrics and the Fibonacci cache
// collectors on reg
func NewMetrics(reg prometheus.Registerer, cache *compute.FibonacciCache) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_errors_total",
				Help:      "Total number of HTTP requests answered with a 4xx or 5xx status",
			},
			[]string{"route", "status"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests being served",
			},
		),
	}

	if cache != nil {
		factory.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fibonacci_cache_hits_total",
				Help:      "Fibonacci lookups served from the cache",
			},
			func() float64 { return float64(cache.Stats().Hits) },
		)
		factory.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fibonacci_cache_misses_total",
				Help:      "Fibonacci lookups not found in the cache",
			},
			func() float64 { return float64(cache.Stats().Misses) },
		)
		factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "fibonacci_cache_entries",
				Help:      "Number of memoized Fibonacci values",
			},
			func() float64 { return float64(cache.Len()) },
		)
	}

	return m
}

// MetricsMiddleware adds Prometheus metrics to requests
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		route := routeLabel(r)
		status := strconv.Itoa(rw.statusCode)

		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.requestTotal.WithLabelValues(r.Method, route, status).Inc()
		if rw.statusCode >= 400 {
			m.requestErrors.WithLabelValues(route, status).Inc()
		}
	})
}

// routeLabel keeps label cardinality bounded: ops routes use their mux
// name, everything else is classified the way the handler dispatches it.
func routeLabel(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if name := cur.GetName(); name != "" && name != routeNameApp {
			return name
		}
	}
	return app.Route(r.Method, r.URL.Path)
}
