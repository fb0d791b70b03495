package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sajjad-MoBe/NumAPI/internal/app"
	"github.com/sajjad-MoBe/NumAPI/internal/compute"
	"github.com/sajjad-MoBe/NumAPI/internal/shared"
	"github.com/sajjad-MoBe/NumAPI/internal/transport"
)

type testEnv struct {
	router   http.Handler
	registry *prometheus.Registry
	cache    *compute.FibonacciCache
	spans    *tracetest.SpanRecorder
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()

	logger := shared.NewDiscardLogger()
	cache := compute.NewFibonacciCache()
	registry := prometheus.NewRegistry()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	tracer := NewTracerWithProvider("numapi-test", tp)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	handler := app.NewHandler(
		app.WithCache(cache),
		app.WithLogger(logger),
		app.WithTracer(tracer.Tracer()),
	)

	health := NewHealthManager()
	health.RegisterChecker("fibonacci_cache", NewCacheHealthChecker(cache))
	health.RegisterChecker("handler", NewHandlerHealthChecker(handler))

	router := Router(RouterConfig{
		App:       handler,
		ChunkSize: 2,
		Logger:    logger,
		Metrics:   NewMetrics(registry, cache),
		Gatherer:  registry,
		Tracer:    tracer,
		Health:    health,
	})

	return &testEnv{router: router, registry: registry, cache: cache, spans: spans}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestRouterEndpoints(t *testing.T) {
	env := setupTestRouter(t)

	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{"factorial", http.MethodGet, "/factorial?n=5", "", http.StatusOK, `{"result":120}`},
		{"factorial negative", http.MethodGet, "/factorial?n=-3", "", http.StatusBadRequest, `{"error":"Bad Request"}`},
		{"factorial letters", http.MethodGet, "/factorial?n=abc", "", http.StatusUnprocessableEntity, `{"error":"Unprocessable Entity"}`},
		{"factorial missing", http.MethodGet, "/factorial", "", http.StatusUnprocessableEntity, `{"error":"Unprocessable Entity"}`},
		{"fibonacci", http.MethodGet, "/fibonacci/10", "", http.StatusOK, `{"result":55}`},
		{"fibonacci trailing slash kept", http.MethodGet, "/fibonacci/10/", "", http.StatusUnprocessableEntity, `{"error":"Unprocessable Entity"}`},
		{"fibonacci negative", http.MethodGet, "/fibonacci/-1", "", http.StatusBadRequest, `{"error":"Bad Request"}`},
		{"fibonacci letters", http.MethodGet, "/fibonacci/xyz", "", http.StatusUnprocessableEntity, `{"error":"Unprocessable Entity"}`},
		{"mean chunked by transport", http.MethodGet, "/mean", "[1, 2, 3]", http.StatusOK, `{"result":2}`},
		{"mean empty", http.MethodGet, "/mean", "[]", http.StatusBadRequest, `{"error":"Bad Request"}`},
		{"mean mixed", http.MethodGet, "/mean", `[1, "a", 3]`, http.StatusUnprocessableEntity, `{"error":"Unprocessable Entity"}`},
		{"post factorial", http.MethodPost, "/factorial?n=5", "", http.StatusNotFound, `{"error":"Not Found"}`},
		{"unknown", http.MethodGet, "/unknown", "", http.StatusNotFound, `{"error":"Not Found"}`},
		{"post healthz", http.MethodPost, "/healthz", "", http.StatusNotFound, `{"error":"Not Found"}`},
		{"double slash not redirected", http.MethodGet, "//factorial?n=5", "", http.StatusNotFound, `{"error":"Not Found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.target, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		})
	}
}

func TestRouterRequestIDEcho(t *testing.T) {
	env := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/factorial?n=1", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestRouterMetrics(t *testing.T) {
	env := setupTestRouter(t)

	env.do(http.MethodGet, "/fibonacci/30", "")
	env.do(http.MethodGet, "/fibonacci/30", "")
	env.do(http.MethodGet, "/fibonacci/abc", "")
	env.do(http.MethodGet, "/nowhere", "")

	total, err := env.registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, total)

	expected := `
# HELP numapi_http_requests_total Total number of HTTP requests
# TYPE numapi_http_requests_total counter
numapi_http_requests_total{method="GET",route="fibonacci",status="200"} 2
numapi_http_requests_total{method="GET",route="fibonacci",status="422"} 1
numapi_http_requests_total{method="GET",route="other",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(env.registry, strings.NewReader(expected), "numapi_http_requests_total"))

	cache := `
# HELP numapi_fibonacci_cache_hits_total Fibonacci lookups served from the cache
# TYPE numapi_fibonacci_cache_hits_total counter
numapi_fibonacci_cache_hits_total 1
# HELP numapi_fibonacci_cache_misses_total Fibonacci lookups not found in the cache
# TYPE numapi_fibonacci_cache_misses_total counter
numapi_fibonacci_cache_misses_total 1
# HELP numapi_fibonacci_cache_entries Number of memoized Fibonacci values
# TYPE numapi_fibonacci_cache_entries gauge
numapi_fibonacci_cache_entries 1
`
	assert.NoError(t, testutil.GatherAndCompare(env.registry, strings.NewReader(cache),
		"numapi_fibonacci_cache_hits_total", "numapi_fibonacci_cache_misses_total", "numapi_fibonacci_cache_entries"))

	w := env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "numapi_http_request_duration_seconds")
}

func TestRouterHealth(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"handler"`)
	assert.Contains(t, w.Body.String(), `"fibonacci_cache"`)
}

func TestRouterTracing(t *testing.T) {
	env := setupTestRouter(t)

	env.do(http.MethodGet, "/factorial?n=4", "")

	var names []string
	for _, s := range env.spans.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "HTTP GET factorial")
	assert.Contains(t, names, "compute.factorial")

	// the compute span is a child of the request span
	var parent, child sdktrace.ReadOnlySpan
	for _, s := range env.spans.Ended() {
		switch s.Name() {
		case "HTTP GET factorial":
			parent = s
		case "compute.factorial":
			child = s
		}
	}
	require.NotNil(t, parent)
	require.NotNil(t, child)
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent().SpanID())
}

func TestUnhealthyHandler(t *testing.T) {
	broken := transport.ApplicationFunc(func(ctx context.Context, scope transport.Scope, receive transport.ReceiveFunc, send transport.SendFunc) error {
		return transport.Respond(ctx, send, http.StatusOK, nil, []byte(`{"result":0}`))
	})

	health := NewHealthManager()
	health.RegisterChecker("handler", NewHandlerHealthChecker(broken))

	w := httptest.NewRecorder()
	health.HealthCheckHandler(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
	assert.Contains(t, w.Body.String(), "Handler self-check failed")
}
