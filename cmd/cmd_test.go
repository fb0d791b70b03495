package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjad-MoBe/NumAPI/internal/app"
	"github.com/sajjad-MoBe/NumAPI/internal/compute"
	"github.com/sajjad-MoBe/NumAPI/internal/shared"
	"github.com/sajjad-MoBe/NumAPI/internal/transport"
)

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestClientCommands(t *testing.T) {
	logger := shared.NewDiscardLogger()
	handler := app.NewHandler(app.WithCache(compute.NewFibonacciCache()), app.WithLogger(logger))
	server := httptest.NewServer(transport.HTTPHandler(handler, transport.DefaultChunkSize, logger))
	defer server.Close()

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"factorial", []string{"client", "--server", server.URL, "factorial", "20"}, "2432902008176640000"},
		{"fibonacci", []string{"client", "-s", server.URL, "fibonacci", "90"}, "2880067194370816120"},
		{"mean", []string{"client", "--server", server.URL, "mean", "1", "2", "3.5"}, "2.1666666666666665"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, context.Background(), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, strings.TrimSpace(out))
		})
	}
}

func TestClientCommandErrors(t *testing.T) {
	logger := shared.NewDiscardLogger()
	server := httptest.NewServer(transport.HTTPHandler(app.NewHandler(app.WithLogger(logger)), transport.DefaultChunkSize, logger))
	defer server.Close()

	_, err := execute(t, context.Background(), "client", "--server", server.URL, "factorial", "abc")
	assert.ErrorContains(t, err, "invalid n")

	_, err = execute(t, context.Background(), "client", "--server", server.URL, "mean")
	assert.ErrorContains(t, err, "400")

	_, err = execute(t, context.Background(), "client", "--server", server.URL, "fibonacci")
	assert.Error(t, err)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, context.Background(), "serve", "--log-format", "xml")
	assert.ErrorContains(t, err, "log_format")

	_, err = execute(t, context.Background(), "serve", "--chunk-size", "0")
	assert.ErrorContains(t, err, "chunk_size")

	_, err = execute(t, context.Background(), "serve", "--config", "/does/not/exist.yaml")
	assert.ErrorContains(t, err, "read config")
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := execute(t, ctx, "serve",
		"--address", "127.0.0.1:0",
		"--grpc-address", "127.0.0.1:0",
		"--log-level", "error",
		"--shutdown-timeout", "2s",
	)
	assert.NoError(t, err)
}
