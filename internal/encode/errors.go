package encode

import "errors"

// Domain-specific errors for encoders.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidPattern is returned when a pattern string cannot be parsed.
	ErrInvalidPattern = errors.New("encode: invalid pattern")

	// ErrUnknownKind is returned when no encoder is registered for a kind.
	ErrUnknownKind = errors.New("encode: unknown encoder kind")

	// ErrInvalidConfig is returned when an encoder configuration block is malformed.
	ErrInvalidConfig = errors.New("encode: invalid encoder config")
)
