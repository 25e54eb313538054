package errors

import "net/http"

// ErrOptimisticLock is returned when a conditional write matched no row
// because another writer changed the task first.
var ErrOptimisticLock = &Exception{
	Message:    "task was modified concurrently, reload and retry",
	StatusCode: http.StatusConflict,
}
