// Package transport defines the message protocol between the request handler
// and whatever hosts it (net/http, gRPC, tests). A host builds a Scope for
// each request and hands the application a ReceiveFunc yielding body chunks
// and a SendFunc accepting a response start followed by a response body.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies a message exchanged with the host
type MessageType string

const (
	// MessageRequestBody carries one chunk of the request body
	MessageRequestBody MessageType = "request.body"
	// MessageDisconnect signals the client went away before the body was complete
	MessageDisconnect MessageType = "request.disconnect"
	// MessageResponseStart carries the status and headers
	MessageResponseStart MessageType = "response.start"
	// MessageResponseBody carries the response payload
	MessageResponseBody MessageType = "response.body"
)

// ScopeHTTP is the only scope type the application serves
const ScopeHTTP = "http"

var (
	// ErrDisconnected is returned by ReadBody when the host reports a disconnect
	ErrDisconnected = errors.New("transport: client disconnected")
	// ErrProtocol is returned by hosts when messages arrive out of order
	ErrProtocol = errors.New("transport: protocol violation")
)

// Header is a single response or request header
type Header struct {
	Name  string
	Value string
}

// Scope describes one request. It is immutable once built by the host.
type Scope struct {
	Type     string
	Method   string
	Path     string
	RawQuery []byte
	Headers  []Header
}

// Header returns the first value of the named header, case-insensitively.
func (s Scope) Header(name string) string {
	for _, h := range s.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Message is a single event exchanged with the host
type Message struct {
	Type     MessageType
	Body     []byte
	MoreBody bool
	Status   int
	Headers  []Header
}

// ReceiveFunc yields the next request message. The sequence is finite and
// cannot be restarted.
type ReceiveFunc func(ctx context.Context) (Message, error)

// SendFunc delivers a response message to the host
type SendFunc func(ctx context.Context, msg Message) error

// Application serves a single request
type Application interface {
	Serve(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error
}

// ApplicationFunc adapts a function to the Application interface
type ApplicationFunc func(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error

// Serve calls f
func (f ApplicationFunc) Serve(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error {
	return f(ctx, scope, receive, send)
}

// ReadBody assembles the full request body, waiting on receive until a chunk
// arrives with MoreBody unset.
func ReadBody(ctx context.Context, receive ReceiveFunc) ([]byte, error) {
	var body bytes.Buffer
	for {
		msg, err := receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("receive body: %w", err)
		}
		switch msg.Type {
		case MessageRequestBody:
			body.Write(msg.Body)
			if !msg.MoreBody {
				return body.Bytes(), nil
			}
		case MessageDisconnect:
			return nil, ErrDisconnected
		default:
			return nil, fmt.Errorf("%w: unexpected %q while reading body", ErrProtocol, msg.Type)
		}
	}
}

// Respond sends a complete response: a start message then one body message.
func Respond(ctx context.Context, send SendFunc, status int, headers []Header, body []byte) error {
	if err := send(ctx, Message{Type: MessageResponseStart, Status: status, Headers: headers}); err != nil {
		return fmt.Errorf("send response start: %w", err)
	}
	if err := send(ctx, Message{Type: MessageResponseBody, Body: body}); err != nil {
		return fmt.Errorf("send response body: %w", err)
	}
	return nil
}

// responseState tracks the start-then-body ordering every host enforces
type responseState struct {
	started bool
	done    bool
}

func (s *responseState) accept(msg Message) error {
	switch msg.Type {
	case MessageResponseStart:
		if s.started {
			return fmt.Errorf("%w: response already started", ErrProtocol)
		}
		s.started = true
	case MessageResponseBody:
		if !s.started {
			return fmt.Errorf("%w: body before response start", ErrProtocol)
		}
		if s.done {
			return fmt.Errorf("%w: response already complete", ErrProtocol)
		}
		s.done = !msg.MoreBody
	default:
		return fmt.Errorf("%w: unexpected %q from application", ErrProtocol, msg.Type)
	}
	return nil
}

// SplitBody returns a ReceiveFunc that yields an already buffered body in
// pieces of at most size bytes. Once drained it reports a disconnect.
func SplitBody(body []byte, size int) ReceiveFunc {
	if size <= 0 {
		size = len(body)
	}
	offset := 0
	drained := false
	return func(ctx context.Context) (Message, error) {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		if drained {
			return Message{Type: MessageDisconnect}, nil
		}
		end := offset + size
		if end >= len(body) {
			end = len(body)
			drained = true
		}
		msg := Message{
			Type:     MessageRequestBody,
			Body:     body[offset:end],
			MoreBody: !drained,
		}
		offset = end
		return msg, nil
	}
}
