package transport

import (
	"bytes"
	"context"
	"strings"
	"sync"
)

// Recorder is an in-memory host. It captures every message the application
// sends and enforces the same ordering rules as the real hosts.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	state    responseState
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send implements SendFunc
func (r *Recorder) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.state.accept(msg); err != nil {
		return err
	}
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Complete reports whether a start and a final body have both been sent
func (r *Recorder) Complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.started && r.state.done
}

// Status returns the status from the response start, or 0
func (r *Recorder) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages {
		if m.Type == MessageResponseStart {
			return m.Status
		}
	}
	return 0
}

// Header returns the first response header value with the given name
func (r *Recorder) Header(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages {
		if m.Type != MessageResponseStart {
			continue
		}
		for _, h := range m.Headers {
			if strings.EqualFold(h.Name, name) {
				return h.Value
			}
		}
	}
	return ""
}

// Headers returns the headers from the response start
func (r *Recorder) Headers() []Header {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages {
		if m.Type == MessageResponseStart {
			out := make([]Header, len(m.Headers))
			copy(out, m.Headers)
			return out
		}
	}
	return nil
}

// Body returns the concatenated response body
func (r *Recorder) Body() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	var buf bytes.Buffer
	for _, m := range r.messages {
		if m.Type == MessageResponseBody {
			buf.Write(m.Body)
		}
	}
	return buf.Bytes()
}

// Chunks returns a ReceiveFunc yielding each argument as one body chunk,
// the last with MoreBody unset. With no arguments it yields a single empty
// chunk.
func Chunks(chunks ...[]byte) ReceiveFunc {
	if len(chunks) == 0 {
		chunks = [][]byte{nil}
	}
	i := 0
	return func(ctx context.Context) (Message, error) {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		if i >= len(chunks) {
			return Message{Type: MessageDisconnect}, nil
		}
		msg := Message{
			Type:     MessageRequestBody,
			Body:     chunks[i],
			MoreBody: i < len(chunks)-1,
		}
		i++
		return msg, nil
	}
}
