package appender

import (
	"errors"
	"fmt"
)

// Sentinel errors for appender operations.
var (
	// ErrEncode is returned when the encoder fails; nothing is published.
	ErrEncode = errors.New("encoding record failed")

	// ErrInvalidOption is returned by Build for an unusable builder setting.
	ErrInvalidOption = errors.New("invalid appender option")
)

// PublishError reports a record that reached the session but was not
// published. Err wraps one of the mqtt session errors (ErrNotConnected,
// ErrPublishFailed, ErrTimeout, ErrClosed).
//
// The appender remains usable after a PublishError.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing log record to %q: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
