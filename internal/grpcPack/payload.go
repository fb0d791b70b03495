package grpcPack

import (
	"github.com/go-json-experiment/json"
	"google.golang.org/grpc/encoding"
)

// ExchangeRequest carries one HTTP-shaped request over gRPC
type ExchangeRequest struct {
	ID      string            `json:"id,omitempty"`
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   string            `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// ExchangeResponse is the complete response the application produced
type ExchangeResponse struct {
	ID      string            `json:"id,omitempty"`
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body"`
}

// codecName is the gRPC content-subtype, i.e. application/grpc+json
const codecName = "json"

// jsonCodec lets the service run without generated protobuf types
type jsonCodec struct{}

var _ encoding.Codec = jsonCodec{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
