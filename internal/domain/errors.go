package domain

import "errors"

var (
	// ErrRunNotFound is returned when a run id does not exist.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidTransition is returned when a lifecycle write targets a run
	// that is not in the expected state (terminal runs included).
	ErrInvalidTransition = errors.New("invalid run status transition")
	// ErrInvalidRequest is returned for malformed run requests.
	ErrInvalidRequest = errors.New("invalid run request")
)
