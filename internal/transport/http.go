package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/sajjad-MoBe/NumAPI/internal/shared"
)

// DefaultChunkSize is used when HTTPHandler is given a non-positive size
const DefaultChunkSize = 64 * 1024

// fallbackBody is written when the application fails before sending anything
var fallbackBody = []byte(`{"error":"Internal Server Error"}`)

// HTTPHandler hosts app behind net/http. The request body is streamed to the
// application in chunks of at most chunkSize bytes.
func HTTPHandler(app Application, chunkSize int, logger *shared.Logger) http.Handler {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = shared.DefaultLogger
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		scope := ScopeFromRequest(r)
		state := &responseState{}

		receive := bodyReceiver(r.Body, chunkSize)
		send := func(ctx context.Context, msg Message) error {
			if err := state.accept(msg); err != nil {
				return err
			}
			return writeMessage(w, msg)
		}

		err := app.Serve(ctx, scope, receive, send)
		if err == nil && state.started && !state.done {
			err = errors.New("application returned before completing the response")
		}
		if err == nil {
			return
		}

		logger.Error("application error",
			"method", scope.Method,
			"path", scope.Path,
			"started", state.started,
			"error", err,
		)
		if !state.started {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(fallbackBody)
		}
	})
}

// ScopeFromRequest builds the Scope for an incoming net/http request
func ScopeFromRequest(r *http.Request) Scope {
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]Header, 0, len(names))
	for _, name := range names {
		for _, v := range r.Header[name] {
			headers = append(headers, Header{Name: name, Value: v})
		}
	}

	return Scope{
		Type:     ScopeHTTP,
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: []byte(r.URL.RawQuery),
		Headers:  headers,
	}
}

func writeMessage(w http.ResponseWriter, msg Message) error {
	switch msg.Type {
	case MessageResponseStart:
		for _, h := range msg.Headers {
			w.Header().Add(h.Name, h.Value)
		}
		w.WriteHeader(msg.Status)
		return nil
	case MessageResponseBody:
		if len(msg.Body) == 0 {
			return nil
		}
		_, err := w.Write(msg.Body)
		return err
	}
	return nil
}

// bodyReceiver reads body lazily, one chunk per call
func bodyReceiver(body io.ReadCloser, chunkSize int) ReceiveFunc {
	done := false
	return func(ctx context.Context) (Message, error) {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		if done {
			return Message{Type: MessageDisconnect}, nil
		}
		if body == nil || body == http.NoBody {
			done = true
			return Message{Type: MessageRequestBody}, nil
		}

		buf := make([]byte, chunkSize)
		n, err := io.ReadFull(body, buf)
		switch {
		case err == nil:
			return Message{Type: MessageRequestBody, Body: buf[:n], MoreBody: true}, nil
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			done = true
			_ = body.Close()
			return Message{Type: MessageRequestBody, Body: buf[:n]}, nil
		default:
			done = true
			return Message{}, err
		}
	}
}
