package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/sajjad-MoBe/NumAPI/internal/compute"
	"github.com/sajjad-MoBe/NumAPI/internal/transport"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Details   any       `json:"details,omitempty"`
}

// HealthChecker defines the interface for health checks
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthManager manages health checks
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	status   map[string]HealthStatus
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		status:   make(map[string]HealthStatus),
	}
}

// RegisterChecker registers a health checker
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// RunHealthChecks runs all registered health checks
func (hm *HealthManager) RunHealthChecks(ctx context.Context) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	for name, checker := range hm.checkers {
		hm.status[name] = checker.Check(ctx)
	}
}

// GetStatus returns the current health status
func (hm *HealthManager) GetStatus() map[string]HealthStatus {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := make(map[string]HealthStatus, len(hm.status))
	for k, v := range hm.status {
		status[k] = v
	}
	return status
}

// HealthCheckHandler handles health check requests
func (hm *HealthManager) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	hm.RunHealthChecks(r.Context())
	status := hm.GetStatus()

	overallStatus := "ok"
	for _, s := range status {
		if s.Status != "ok" {
			overallStatus = "error"
			break
		}
	}

	response := map[string]any{
		"status":     overallStatus,
		"timestamp":  time.Now(),
		"components": status,
	}

	w.Header().Set("Content-Type", "application/json")
	if overallStatus == "error" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.MarshalWrite(w, response)
}

// CacheHealthChecker reports the Fibonacci cache counters
type CacheHealthChecker struct {
	cache *compute.FibonacciCache
}

// NewCacheHealthChecker creates a new cache health checker
func NewCacheHealthChecker(cache *compute.FibonacciCache) *CacheHealthChecker {
	return &CacheHealthChecker{cache: cache}
}

// Check implements HealthChecker
func (c *CacheHealthChecker) Check(ctx context.Context) HealthStatus {
	stats := c.cache.Stats()
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Details: map[string]any{
			"entries":      stats.Entries,
			"hits":         stats.Hits,
			"misses":       stats.Misses,
			"computations": stats.Computations,
		},
	}
}

// HandlerHealthChecker runs a known request through the application and
// compares the response
type HandlerHealthChecker struct {
	app transport.Application
}

// NewHandlerHealthChecker creates a new handler health checker
func NewHandlerHealthChecker(app transport.Application) *HandlerHealthChecker {
	return &HandlerHealthChecker{app: app}
}

const (
	probeQuery = "n=5"
	probeWant  = `{"result":120}`
)

// Check implements HealthChecker
func (c *HandlerHealthChecker) Check(ctx context.Context) HealthStatus {
	start := time.Now()
	rec := transport.NewRecorder()
	scope := transport.Scope{
		Type:     transport.ScopeHTTP,
		Method:   http.MethodGet,
		Path:     "/factorial",
		RawQuery: []byte(probeQuery),
	}

	err := c.app.Serve(ctx, scope, transport.Chunks(), rec.Send)
	duration := time.Since(start)

	if err != nil || rec.Status() != http.StatusOK || string(rec.Body()) != probeWant {
		details := map[string]any{
			"status":   rec.Status(),
			"body":     string(rec.Body()),
			"duration": duration.String(),
		}
		if err != nil {
			details["error"] = err.Error()
		}
		return HealthStatus{
			Status:    "error",
			Message:   "Handler self-check failed",
			Timestamp: time.Now(),
			Details:   details,
		}
	}

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Details: map[string]any{
			"duration": duration.String(),
		},
	}
}
