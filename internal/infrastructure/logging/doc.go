// Package logging provides structured diagnostic logging for logship.
//
// This package wraps Go's standard log/slog package so the CLI and the
// infrastructure packages share one configured logger. It is separate from
// the records logship ships to the broker: those flow through the appender.
//
// # Features
//
//   - JSON or text output
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (trace, debug, info, warn, error)
//   - Fanout to additional handlers, such as an MQTT appender handler
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # trace, debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("appender ready", "topic", cfg.MQTT.Topic)
//
// # Security
//
// Never log broker passwords. The appender and session only ever log the
// username.
package logging
