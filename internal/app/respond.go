package app

import (
	"context"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	numErr "github.com/sajjad-MoBe/NumAPI/internal/errors"
	"github.com/sajjad-MoBe/NumAPI/internal/transport"
)

// ContentType is set on every response the handler sends
const ContentType = "application/json"

type resultBody struct {
	Result jsontext.Value `json:"result"`
}

type errorBody struct {
	Error string `json:"error"`
}

var jsonHeaders = []transport.Header{{Name: "content-type", Value: ContentType}}

// respond sends {"result": value} with 200, or {"error": <status text>} with
// the status mapped from err.
func respond(ctx context.Context, send transport.SendFunc, value jsontext.Value, err error) error {
	status := numErr.StatusCode(err)

	var (
		body   []byte
		encErr error
	)
	if err == nil {
		body, encErr = json.Marshal(resultBody{Result: value})
	} else {
		body, encErr = json.Marshal(errorBody{Error: numErr.Message(err)})
	}
	if encErr != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Error: http.StatusText(status)})
	}

	return transport.Respond(ctx, send, status, jsonHeaders, body)
}
