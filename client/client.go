package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Client talks to a NumAPI server over HTTP
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig RetryConfig
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		Timeout:    5 * time.Second,
	}
}

// Option configures a Client
type Option func(*Client)

// WithRetryConfig replaces the default retry configuration
func WithRetryConfig(rc RetryConfig) Option {
	return func(c *Client) {
		c.retryConfig = rc
		c.httpClient.Timeout = rc.Timeout
	}
}

// WithHTTPClient uses the given http.Client instead of a fresh one
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// APIError is returned for any non-200 response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("numapi: %d %s", e.StatusCode, e.Message)
}

// New creates a new client for the server at baseURL, e.g. http://localhost:8080
func New(baseURL string, opts ...Option) *Client {
	rc := DefaultRetryConfig()
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: rc.Timeout},
		retryConfig: rc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factorial returns n!
func (c *Client) Factorial(ctx context.Context, n int64) (*big.Int, error) {
	q := url.Values{"n": {strconv.FormatInt(n, 10)}}
	result, err := c.get(ctx, "/factorial?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return parseInt(result)
}

// Fibonacci returns F(n)
func (c *Client) Fibonacci(ctx context.Context, n int64) (*big.Int, error) {
	result, err := c.get(ctx, "/fibonacci/"+strconv.FormatInt(n, 10), nil)
	if err != nil {
		return nil, err
	}
	return parseInt(result)
}

// Mean returns the arithmetic mean of xs
func (c *Client) Mean(ctx context.Context, xs []float64) (float64, error) {
	if xs == nil {
		xs = []float64{}
	}
	body, err := json.Marshal(xs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode numbers: %w", err)
	}
	result, err := c.get(ctx, "/mean", body)
	if err != nil {
		return 0, err
	}
	var mean float64
	if err := json.Unmarshal(result, &mean); err != nil {
		return 0, fmt.Errorf("failed to decode result: %w", err)
	}
	return mean, nil
}

type envelope struct {
	Result jsontext.Value `json:"result"`
	Error  string         `json:"error"`
}

// get performs a GET with retries on transport errors and 5xx responses
// and returns the raw result value.
func (c *Client) get(ctx context.Context, path string, body []byte) (jsontext.Value, error) {
	attempts := c.retryConfig.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryConfig.RetryDelay):
			}
		}

		result, err := c.do(ctx, path, body)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) do(ctx context.Context, path string, body []byte) (jsontext.Value, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode != http.StatusOK {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if len(env.Result) == 0 {
		return nil, errors.New("response has no result")
	}
	return env.Result, nil
}

func parseInt(v jsontext.Value) (*big.Int, error) {
	n, ok := new(big.Int).SetString(string(v), 10)
	if !ok {
		return nil, fmt.Errorf("result %s is not an integer", v)
	}
	return n, nil
}
