// Package encode turns log records into byte payloads.
//
// An Encoder writes one record into a Writer. Writers accept styling
// directives (colours, intensity) through SetStyle; destinations that
// cannot display styles, such as MQTT payload buffers, accept and ignore
// them.
//
// # Encoders
//
//   - pattern: log4rs-style format strings, e.g. "{d} {l} {t} - {m}{n}"
//   - json: one JSON object per line, with a unique message id
//
// # Configuration
//
// Encoders are selected at configuration time through a Registry:
//
//	encoder:
//	  kind: pattern
//	  pattern: "{d(%H:%M:%S)} [{l}] - {m}{n}"
//
// Unknown kinds and unknown keys are rejected.
package encode
