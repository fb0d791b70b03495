package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sajjad-MoBe/NumAPI/internal/shared"
	"github.com/sajjad-MoBe/NumAPI/internal/transport"
)

// mux route names; also used as metric labels for the ops endpoints
const (
	routeNameHealth  = "healthz"
	routeNameMetrics = "metrics"
	routeNameApp     = "app"
)

// RouterConfig collects what Router wires together. Metrics, Gatherer,
// Tracer and Health are optional.
type RouterConfig struct {
	App       transport.Application
	ChunkSize int
	Logger    *shared.Logger
	Metrics   *Metrics
	Gatherer  prometheus.Gatherer
	Tracer    *Tracer
	Health    *HealthManager
}

// Router creates and configures the HTTP router
func Router(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = shared.DefaultLogger
	}

	router := mux.NewRouter()
	// the handler routes on the raw path, so mux must not clean or redirect it
	router.SkipClean(true)

	middleware := []mux.MiddlewareFunc{RequestIDMiddleware}
	if cfg.Tracer != nil {
		middleware = append(middleware, cfg.Tracer.TracingMiddleware)
	}
	middleware = append(middleware, LoggingMiddleware(logger))
	if cfg.Metrics != nil {
		middleware = append(middleware, cfg.Metrics.MetricsMiddleware)
	}
	middleware = append(middleware, RecoveryMiddleware(logger))
	router.Use(middleware...)

	if cfg.Health != nil {
		router.HandleFunc("/healthz", cfg.Health.HealthCheckHandler).
			Methods(http.MethodGet).
			Name(routeNameHealth)
	}
	if cfg.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).
			Methods(http.MethodGet).
			Name(routeNameMetrics)
	}

	// everything else, whatever the method, goes to the application so that
	// unmatched requests get its 404 policy
	appHandler := transport.HTTPHandler(cfg.App, cfg.ChunkSize, logger)
	router.PathPrefix("/").Handler(appHandler).Name(routeNameApp)
	router.NotFoundHandler = appHandler

	return router
}
