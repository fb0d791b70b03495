// Package app implements the numeric request handler. It speaks only the
// transport message protocol, so the same handler runs behind net/http,
// gRPC, or an in-memory recorder.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sajjad-MoBe/NumAPI/internal/compute"
	numErr "github.com/sajjad-MoBe/NumAPI/internal/errors"
	"github.com/sajjad-MoBe/NumAPI/internal/shared"
	"github.com/sajjad-MoBe/NumAPI/internal/transport"
)

const tracerName = "github.com/sajjad-MoBe/NumAPI/internal/app"

// Limits caps the n accepted by factorial and fibonacci. Zero disables a cap.
type Limits struct {
	MaxFactorialN int64
	MaxFibonacciN int64
}

// DefaultLimits keeps a single request's CPU and memory use bounded
func DefaultLimits() Limits {
	return Limits{
		MaxFactorialN: 10000,
		MaxFibonacciN: 100000,
	}
}

// Handler serves factorial, fibonacci and mean requests
type Handler struct {
	limits Limits
	cache  *compute.FibonacciCache
	logger *shared.Logger
	tracer trace.Tracer
}

// Option configures a Handler
type Option func(*Handler)

// WithLimits sets the input ceilings
func WithLimits(l Limits) Option {
	return func(h *Handler) { h.limits = l }
}

// WithCache replaces the process-wide Fibonacci cache
func WithCache(c *compute.FibonacciCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *shared.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithTracer sets the tracer used for compute spans
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) { h.tracer = t }
}

// NewHandler creates a new Handler
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		limits: DefaultLimits(),
		cache:  compute.DefaultFibonacciCache,
		logger: shared.DefaultLogger,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Cache returns the Fibonacci cache the handler reads through
func (h *Handler) Cache() *compute.FibonacciCache {
	return h.cache
}

// Serve implements transport.Application. Every request gets exactly one
// response; validation failures are responses, not errors. An error is
// returned only when the response could not be delivered.
func (h *Handler) Serve(ctx context.Context, scope transport.Scope, receive transport.ReceiveFunc, send transport.SendFunc) error {
	if scope.Type != "" && scope.Type != transport.ScopeHTTP {
		return fmt.Errorf("unsupported scope type %q", scope.Type)
	}

	start := time.Now()
	route := Route(scope.Method, scope.Path)

	var (
		value jsontext.Value
		err   error
	)
	switch route {
	case RouteFactorial:
		value, err = h.factorial(ctx, scope.RawQuery)
	case RouteFibonacci:
		value, err = h.fibonacci(ctx, scope.Path)
	case RouteMean:
		value, err = h.mean(ctx, receive)
	default:
		err = numErr.New(numErr.ErrorTypeNotFound, "no route for "+scope.Method+" "+scope.Path, nil)
	}

	if errors.Is(err, transport.ErrDisconnected) {
		return err
	}

	status := numErr.StatusCode(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "route", route, "path", scope.Path, "error", err)
	} else {
		h.logger.Debug("request handled",
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"reason", err,
		)
	}

	return respond(ctx, send, value, err)
}

func (h *Handler) factorial(ctx context.Context, rawQuery []byte) (jsontext.Value, error) {
	n, err := parseFactorialN(rawQuery)
	if err != nil {
		return nil, err
	}
	if err := checkRange(n, h.limits.MaxFactorialN); err != nil {
		return nil, err
	}

	_, span := h.tracer.Start(ctx, "compute.factorial", trace.WithAttributes(attribute.Int64("n", n)))
	defer span.End()

	result, err := compute.Factorial(n)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, numErr.New(numErr.ErrorTypeInvalidInput, "n must not be negative", err)
	}
	return jsontext.Value(result.String()), nil
}

func (h *Handler) fibonacci(ctx context.Context, path string) (jsontext.Value, error) {
	n, err := parseFibonacciN(path)
	if err != nil {
		return nil, err
	}
	if err := checkRange(n, h.limits.MaxFibonacciN); err != nil {
		return nil, err
	}

	_, span := h.tracer.Start(ctx, "compute.fibonacci", trace.WithAttributes(attribute.Int64("n", n)))
	defer span.End()

	result, err := h.cache.Get(n)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, numErr.New(numErr.ErrorTypeInvalidInput, "n must not be negative", err)
	}
	return jsontext.Value(result.String()), nil
}

func (h *Handler) mean(ctx context.Context, receive transport.ReceiveFunc) (jsontext.Value, error) {
	body, err := transport.ReadBody(ctx, receive)
	if err != nil {
		if errors.Is(err, transport.ErrDisconnected) {
			return nil, err
		}
		return nil, numErr.New(numErr.ErrorTypeInternal, "reading request body", err)
	}

	xs, err := parseNumbers(body)
	if err != nil {
		return nil, err
	}

	_, span := h.tracer.Start(ctx, "compute.mean", trace.WithAttributes(attribute.Int("count", len(xs))))
	defer span.End()

	result, err := compute.Mean(xs)
	if err != nil {
		return nil, numErr.New(numErr.ErrorTypeInvalidInput, "mean of an empty list is undefined", err)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, numErr.New(numErr.ErrorTypeInternal, "encoding mean", err)
	}
	return jsontext.Value(encoded), nil
}

// checkRange rejects negative n and n above a non-zero ceiling
func checkRange(n, ceiling int64) error {
	if n < 0 {
		return numErr.New(numErr.ErrorTypeInvalidInput, "n must not be negative", nil)
	}
	if ceiling > 0 && n > ceiling {
		return numErr.New(numErr.ErrorTypeInvalidInput, fmt.Sprintf("n must not exceed %d", ceiling), nil)
	}
	return nil
}
