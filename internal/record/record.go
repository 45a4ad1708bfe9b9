// Package record defines the log record handed from the logging front-end
// to appenders and encoders.
package record

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Level is the severity of a log record.
//
// Lower values are more severe, so a filter "at or above Warn" keeps
// records whose level is <= Warn.
type Level int

// Severity levels, most severe first.
const (
	LevelError Level = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// String returns the upper-case level name (e.g. "INFO").
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel converts a level name to a Level.
//
// Matching is case-insensitive and accepts "warning" as an alias for warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// FromSlog maps an slog level onto a Level.
// Anything below slog.LevelDebug is treated as trace.
func FromSlog(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarn
	case l >= slog.LevelInfo:
		return LevelInfo
	case l >= slog.LevelDebug:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// Slog maps the level back onto slog's scale.
func (l Level) Slog() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelDebug:
		return slog.LevelDebug
	case LevelTrace:
		return slog.LevelDebug - 4
	default:
		return slog.LevelInfo
	}
}

// Attr is a single key/value pair attached to a record.
type Attr struct {
	Key   string
	Value any
}

// Record is a single structured log event.
type Record struct {
	Time    time.Time
	Level   Level
	Message string

	// Target names the logical source of the record (component, logger name).
	Target string

	// Module, File and Line describe the call site when known.
	Module string
	File   string
	Line   int

	Attrs []Attr
}

// Lookup returns the value of the first attribute with the given key.
func (r *Record) Lookup(key string) (any, bool) {
	for _, a := range r.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return nil, false
}
