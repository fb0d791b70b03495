package app

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json/jsontext"

	numErr "github.com/sajjad-MoBe/NumAPI/internal/errors"
)

// parseFactorialN extracts n from the raw query string. The first non-blank
// value of n must be ASCII digits with at most one leading minus sign.
func parseFactorialN(rawQuery []byte) (int64, error) {
	// pairs with bad escapes are dropped; the rest are still usable
	values, _ := url.ParseQuery(string(rawQuery))

	raw := ""
	for _, v := range values["n"] {
		if v != "" {
			raw = v
			break
		}
	}
	if raw == "" {
		return 0, numErr.New(numErr.ErrorTypeUnprocessable, "query parameter n is required", nil)
	}

	if !isDigits(strings.TrimPrefix(raw, "-")) {
		return 0, numErr.New(numErr.ErrorTypeUnprocessable, "n must be an integer", nil)
	}
	return parseSigned(raw)
}

// parseFibonacciN parses the last path segment as a signed decimal integer
func parseFibonacciN(path string) (int64, error) {
	seg := path[strings.LastIndex(path, "/")+1:]
	return parseSigned(seg)
}

// parseSigned parses s as a base-10 int64. Syntax errors are unprocessable.
// Values outside int64 are reported as invalid input, since a well-formed
// integer that large is either negative or above any ceiling.
func parseSigned(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(s, "-") {
			return 0, numErr.New(numErr.ErrorTypeInvalidInput, "n must not be negative", err)
		}
		return 0, numErr.New(numErr.ErrorTypeInvalidInput, "n is too large", err)
	}
	return 0, numErr.New(numErr.ErrorTypeUnprocessable, "n must be an integer", err)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseNumbers decodes body as a JSON array whose elements are all numbers.
// Tokens are inspected by kind, so booleans, strings, null and nested
// values are rejected rather than coerced.
func parseNumbers(body []byte) ([]float64, error) {
	dec := jsontext.NewDecoder(bytes.NewReader(body))

	tok, err := dec.ReadToken()
	if err != nil {
		return nil, numErr.New(numErr.ErrorTypeUnprocessable, "body is not valid JSON", err)
	}
	if tok.Kind() != '[' {
		return nil, numErr.New(numErr.ErrorTypeUnprocessable, "body must be a JSON array", nil)
	}

	xs := make([]float64, 0)
	for dec.PeekKind() != ']' {
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, numErr.New(numErr.ErrorTypeUnprocessable, "body is not valid JSON", err)
		}
		if tok.Kind() != '0' {
			return nil, numErr.New(numErr.ErrorTypeUnprocessable, "array elements must be numbers", nil)
		}
		x, err := strconv.ParseFloat(tok.String(), 64)
		if err != nil {
			return nil, numErr.New(numErr.ErrorTypeUnprocessable, "number out of range", err)
		}
		xs = append(xs, x)
	}
	if _, err := dec.ReadToken(); err != nil {
		return nil, numErr.New(numErr.ErrorTypeUnprocessable, "body is not valid JSON", err)
	}

	if _, err := dec.ReadToken(); !errors.Is(err, io.EOF) {
		return nil, numErr.New(numErr.ErrorTypeUnprocessable, "trailing data after array", err)
	}
	return xs, nil
}
