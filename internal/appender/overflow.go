package appender

import (
	"fmt"
	"strings"
)

// OverflowPolicy decides what Append does when a publish exceeds the
// configured publish timeout.
type OverflowPolicy int

const (
	// OverflowError returns the timeout to the caller as a PublishError.
	OverflowError OverflowPolicy = iota

	// OverflowDrop discards the record, counts it and returns nil.
	OverflowDrop
)

// ParseOverflow parses "error" or "drop". An empty string means error.
func ParseOverflow(s string) (OverflowPolicy, error) {
	switch strings.ToLower(s) {
	case "", "error":
		return OverflowError, nil
	case "drop":
		return OverflowDrop, nil
	default:
		return OverflowError, fmt.Errorf("%w: overflow policy %q", ErrInvalidOption, s)
	}
}

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowError:
		return "error"
	case OverflowDrop:
		return "drop"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}
