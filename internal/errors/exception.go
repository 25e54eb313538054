package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Exception struct {
	Message    string
	StatusCode int
}

func (e *Exception) Error() string {
	return e.Message
}

func StatusCode(err error) int {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing text for err. Unknown errors are not
// leaked to callers.
func Message(err error) string {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return err.Error()
	}
	return http.StatusText(http.StatusInternalServerError)
}

// Validation wraps ErrValidation with a description of the offending field.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
