package cleaning

import "errors"

var (
	// ErrMalformedRule is returned when a removal rule cannot be compiled.
	ErrMalformedRule = errors.New("malformed cleaning rule")
)
