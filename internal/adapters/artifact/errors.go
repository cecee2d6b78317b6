package artifact

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidName = errors.New("invalid artifact name")
	ErrNotFound    = errors.New("artifact not found")
	ErrLocked      = errors.New("artifact is locked")
)
