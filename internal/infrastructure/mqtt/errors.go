package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidPort is returned when a broker address has a port that is
	// not an unsigned 16-bit integer.
	ErrInvalidPort = errors.New("mqtt: invalid port number")

	// ErrNotConnected is returned when publishing while the connection is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when a session cannot be opened.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty topic is provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrTimeout is returned when a publish does not complete before its
	// context ends.
	ErrTimeout = errors.New("mqtt: operation timed out")

	// ErrClosed is returned when publishing on a closed session.
	ErrClosed = errors.New("mqtt: session closed")
)
