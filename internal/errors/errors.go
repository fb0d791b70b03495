package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates no route matched the request
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeInvalidInput indicates well-formed input that is semantically invalid
	ErrorTypeInvalidInput ErrorType = "INVALID_INPUT"
	// ErrorTypeUnprocessable indicates input that could not be parsed
	ErrorTypeUnprocessable ErrorType = "UNPROCESSABLE"
	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// NumError represents a custom error with additional context
type NumError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   string
}

// Error implements the error interface
func (e *NumError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *NumError) Unwrap() error {
	return e.Err
}

// New creates a new NumError
func New(errType ErrorType, message string, err error) *NumError {
	_, file, line, _ := runtime.Caller(1)
	stack := fmt.Sprintf("%s:%d", file, line)

	return &NumError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

// typeOf returns the ErrorType of the first NumError in err's chain.
func typeOf(err error) (ErrorType, bool) {
	var numErr *NumError
	if stderrors.As(err, &numErr) {
		return numErr.Type, true
	}
	return "", false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeNotFound
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeInvalidInput
}

// IsUnprocessable checks if the error is an unparseable input error
func IsUnprocessable(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeUnprocessable
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeInternal
}

// StatusCode maps an error to the HTTP status the handler responds with.
// Errors that carry no NumError are internal.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUnprocessable(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text placed in the "error" key of a response body.
// It is always the canonical status text so clients can match on it.
func Message(err error) string {
	return http.StatusText(StatusCode(err))
}

// RecoverError recovers from a panic and converts it to a NumError
func RecoverError(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("%s", v)
	default:
		err = fmt.Errorf("%v", v)
	}

	return New(ErrorTypeInternal, "recovered from panic", err)
}
