package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-logship/internal/encode"
)

// Appender defaults, shared with appender.NewBuilder.
const (
	DefaultBroker   = "mqtt://localhost:1883"
	DefaultClientID = "log4rs_client"
	DefaultTopic    = "logs"
)

// Overflow policies applied when a publish exceeds its timeout.
const (
	OverflowError = "error"
	OverflowDrop  = "drop"
)

// Config is the root configuration structure for logship.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Logging LoggingConfig  `yaml:"logging"`
	MQTT    AppenderConfig `yaml:"mqtt"`
	Metrics MetricsConfig  `yaml:"metrics"`
}

// LoggingConfig contains settings for logship's own diagnostic logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AppenderConfig is the MQTT appender block.
//
// Unknown keys are rejected when the file is loaded.
type AppenderConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`

	// Topic may contain the {level} placeholder.
	Topic string `yaml:"topic"`

	// QoS is 0, 1 or 2. Any other value falls back to 0.
	QoS int `yaml:"qos"`

	// Username and Password only take effect together.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Encoder is handed to the encoder registry; nil means the default pattern.
	Encoder *encode.Config `yaml:"encoder"`

	// PublishTimeout bounds a single publish. Zero blocks until the broker
	// write completes.
	PublishTimeout time.Duration `yaml:"publish_timeout"`

	// Overflow decides what a timed-out publish does: "error" or "drop".
	Overflow string `yaml:"overflow"`
}

// MetricsConfig contains the Prometheus/health HTTP endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LOGSHIP_SECTION_KEY
// For example: LOGSHIP_MQTT_BROKER, LOGSHIP_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes, with the same defaults,
// overrides and validation as Load.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		MQTT: AppenderConfig{
			Broker:   DefaultBroker,
			ClientID: DefaultClientID,
			Topic:    DefaultTopic,
			Overflow: OverflowError,
		},
		Metrics: MetricsConfig{
			Host: "127.0.0.1",
			Port: 9464,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LOGSHIP_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("LOGSHIP_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("LOGSHIP_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.ClientID = v
	}
	if v := os.Getenv("LOGSHIP_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("LOGSHIP_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	// Logging
	if v := os.Getenv("LOGSHIP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// An out-of-range mqtt.qos is not an error: it falls back to at-most-once
// when the appender is built. A username without a password (or the
// reverse) is accepted and simply not sent.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required")
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required")
	}
	if c.MQTT.PublishTimeout < 0 {
		errs = append(errs, "mqtt.publish_timeout must not be negative")
	}
	// Case-insensitive, matching appender.ParseOverflow.
	switch strings.ToLower(c.MQTT.Overflow) {
	case "", OverflowError, OverflowDrop:
	default:
		errs = append(errs, fmt.Sprintf("mqtt.overflow must be %q or %q", OverflowError, OverflowDrop))
	}

	// Metrics validation
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errs = append(errs, "metrics.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// MetricsAddr returns the listen address for the metrics endpoint.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.Metrics.Host, c.Metrics.Port)
}
