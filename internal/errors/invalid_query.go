package errors

import "net/http"

var ErrInvalidQuery = &Exception{
	Message:    "invalid query parameter",
	StatusCode: http.StatusBadRequest,
}
