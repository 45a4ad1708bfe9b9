package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-logship/internal/appender"
	"github.com/nerrad567/gray-logic-logship/internal/encode"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/logging"
)

// defaultConfigPath is used when neither --config nor LOGSHIP_CONFIG is set.
const defaultConfigPath = "configs/logship.yaml"

// connectPollInterval is how often waitConnected re-checks the session.
const connectPollInterval = 50 * time.Millisecond

type globalFlags struct {
	config string
	broker string
	topic  string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// configPath resolves the configuration file and whether it was named
// explicitly. Only an explicit path must exist.
func (c *commandContext) configPath() (string, bool) {
	if p := strings.TrimSpace(c.flags.config); p != "" {
		return p, true
	}
	if p := strings.TrimSpace(os.Getenv("LOGSHIP_CONFIG")); p != "" {
		return p, true
	}
	return defaultConfigPath, false
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.loadConfig()
	})
	return c.config, c.configErr
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	path, explicit := c.configPath()

	cfg, err := config.Load(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		// No file at the default location: defaults plus environment.
		if cfg, err = config.Parse(nil); err != nil {
			return nil, err
		}
	}

	if c.flags.broker != "" {
		cfg.MQTT.Broker = c.flags.broker
	}
	if c.flags.topic != "" {
		cfg.MQTT.Topic = c.flags.topic
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// diagnostics returns logship's own logger.
func (c *commandContext) diagnostics() *logging.Logger {
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return logging.Default()
	}
	return logging.New(cfg.Logging, version)
}

// buildAppender creates the appender from configuration. reg may be nil
// when metrics are not served.
func (c *commandContext) buildAppender(log *logging.Logger, reg prometheus.Registerer) (*appender.Appender, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	b, err := appender.FromConfig(cfg.MQTT, encode.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("configuring appender: %w", err)
	}

	if reg != nil {
		m, err := appender.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
		b.Metrics(m)
	}

	app, err := b.Logger(log.With("component", "mqtt")).Build()
	if err != nil {
		return nil, fmt.Errorf("building appender: %w", err)
	}
	return app, nil
}

// waitConnected polls until the appender's connection is up or timeout
// passes. A zero timeout returns immediately.
func waitConnected(ctx context.Context, app *appender.Appender, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(connectPollInterval)
	defer ticker.Stop()

	for {
		err := app.HealthCheck(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for broker: %w", err)
		case <-ticker.C:
		}
	}
}
