package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
		message  string
	}{
		{"nil", nil, http.StatusOK, "OK"},
		{"not found", New(ErrorTypeNotFound, "no route", nil), http.StatusNotFound, "Not Found"},
		{"invalid input", New(ErrorTypeInvalidInput, "negative n", nil), http.StatusBadRequest, "Bad Request"},
		{"unprocessable", New(ErrorTypeUnprocessable, "n is not an integer", nil), http.StatusUnprocessableEntity, "Unprocessable Entity"},
		{"internal", New(ErrorTypeInternal, "boom", nil), http.StatusInternalServerError, "Internal Server Error"},
		{"plain error", fmt.Errorf("plain"), http.StatusInternalServerError, "Internal Server Error"},
		{"wrapped", fmt.Errorf("parse query: %w", New(ErrorTypeUnprocessable, "bad", nil)), http.StatusUnprocessableEntity, "Unprocessable Entity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusCode(tt.err))
			assert.Equal(t, tt.message, Message(tt.err))
		})
	}
}

func TestNumErrorFormatting(t *testing.T) {
	cause := fmt.Errorf("strconv: bad digit")
	err := New(ErrorTypeUnprocessable, "n is not an integer", cause)

	assert.Equal(t, "UNPROCESSABLE: n is not an integer (strconv: bad digit)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Stack, "errors_test.go")

	assert.Equal(t, "INVALID_INPUT: negative", New(ErrorTypeInvalidInput, "negative", nil).Error())
}

func TestRecoverError(t *testing.T) {
	assert.Nil(t, RecoverError(nil))

	err := RecoverError("index out of range")
	assert.True(t, IsInternal(err))
	assert.Contains(t, err.Error(), "index out of range")

	err = RecoverError(42)
	assert.True(t, IsInternal(err))
	assert.Contains(t, err.Error(), "42")
}
