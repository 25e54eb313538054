package errors

import "net/http"

var ErrSweepInProgress = &Exception{
	Message:    "a sweep is already running",
	StatusCode: http.StatusConflict,
}
