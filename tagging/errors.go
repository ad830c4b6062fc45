package tagging

import "errors"

var (
	// ErrBackendUnavailable is returned when a backend call fails after all
	// retry attempts.
	ErrBackendUnavailable = errors.New("tagging backend unavailable")

	// ErrParseFailed is returned when a backend response cannot be parsed
	// after all retry attempts.
	ErrParseFailed = errors.New("tagging response parse failed")

	// ErrInvalidMaxAttempts is returned for a non-positive retry budget.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)
