package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/config"
)

// serviceName is attached to every diagnostic log entry.
const serviceName = "logship"

// LevelTrace sits below slog.LevelDebug and matches the "trace" config value.
const LevelTrace = slog.LevelDebug - 4

// Logger is logship's diagnostic logger: a slog.Logger preloaded with the
// service and version attributes.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New builds the diagnostic logger described by cfg.
//
// Output "stdout" writes to standard output; anything else, including the
// empty string, writes to standard error so that piped data on stdout stays
// clean.
//
// Parameters:
//   - cfg: the logging block of logship.yaml
//   - version: build version reported on every entry
//
// Returns:
//   - *Logger: ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		w = os.Stdout
	}
	return NewWithWriter(w, cfg, version)
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	h := newHandler(w, cfg).WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(h)}
}

// newHandler picks the JSON handler for format "json" and text otherwise.
func newHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel maps a config level name to a slog.Level. Unknown names
// mean info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// With returns a child Logger carrying extra attributes.
//
//	mqttLog := log.With("component", "mqtt")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Tee returns a Logger that writes every entry to both l and h.
//
// Keep l itself for components that must not log through h, such as the
// MQTT session underneath an appender handler.
func (l *Logger) Tee(h slog.Handler) *Logger {
	return &Logger{Logger: slog.New(Fanout(l.Handler(), h))}
}

// Default is the logger used before configuration is available: text on
// stderr at info.
func Default() *Logger {
	return NewWithWriter(os.Stderr, config.LoggingConfig{Level: "info"}, "dev")
}
