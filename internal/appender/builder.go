package appender

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nerrad567/gray-logic-logship/internal/encode"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/mqtt"
)

// Builder collects appender settings. The zero value is not usable; start
// from NewBuilder.
//
// A Builder is not safe for concurrent use. Each Build opens a new
// connection.
type Builder struct {
	broker   string
	clientID string
	topic    string
	qos      int
	username string
	password string
	encoder  encode.Encoder

	publishTimeout time.Duration
	overflow       OverflowPolicy

	logger  mqtt.Logger
	metrics *Metrics

	// dialer replaces the paho client; tests install an in-memory transport.
	dialer mqtt.Dialer
}

// NewBuilder returns a builder holding the defaults: broker
// mqtt://localhost:1883, client id log4rs_client, topic "logs", QoS 0,
// no credentials and the default pattern encoder.
func NewBuilder() *Builder {
	return &Builder{
		broker:   config.DefaultBroker,
		clientID: config.DefaultClientID,
		topic:    config.DefaultTopic,
		qos:      int(AtMostOnce),
		encoder:  encode.DefaultPatternEncoder(),
	}
}

// Broker sets the broker URL, e.g. "mqtt://broker.local:1883".
func (b *Builder) Broker(url string) *Builder {
	b.broker = url
	return b
}

// ClientID sets the client identifier presented to the broker.
func (b *Builder) ClientID(id string) *Builder {
	b.clientID = id
	return b
}

// Topic sets the topic template. It may contain "{level}".
func (b *Builder) Topic(template string) *Builder {
	b.topic = template
	return b
}

// QoS sets the delivery level. Values other than 0, 1 and 2 fall back to
// at-most-once.
func (b *Builder) QoS(n int) *Builder {
	b.qos = n
	return b
}

// Username sets the broker username. It is only sent with a password.
func (b *Builder) Username(u string) *Builder {
	b.username = u
	return b
}

// Password sets the broker password. It is only sent with a username.
func (b *Builder) Password(p string) *Builder {
	b.password = p
	return b
}

// Encoder sets the record encoder. Nil restores the default pattern encoder.
func (b *Builder) Encoder(e encode.Encoder) *Builder {
	if e == nil {
		e = encode.DefaultPatternEncoder()
	}
	b.encoder = e
	return b
}

// PublishTimeout bounds each publish. Zero, the default, waits as long as
// the broker write takes.
func (b *Builder) PublishTimeout(d time.Duration) *Builder {
	b.publishTimeout = d
	return b
}

// Overflow sets what happens to a record whose publish times out.
func (b *Builder) Overflow(p OverflowPolicy) *Builder {
	b.overflow = p
	return b
}

// Logger sets the logger for the appender's and the connection's own
// diagnostics. It must not log through this appender.
func (b *Builder) Logger(l mqtt.Logger) *Builder {
	b.logger = l
	return b
}

// Metrics attaches Prometheus collectors.
func (b *Builder) Metrics(m *Metrics) *Builder {
	b.metrics = m
	return b
}

// Build parses the broker address, opens the connection and returns the
// appender.
//
// Build does not wait for the broker: the connection is established in
// the background and re-established after failures. Appends made before
// it is up fail with a PublishError wrapping mqtt.ErrNotConnected.
//
// Returns:
//   - *Appender: Ready to append
//   - error: mqtt.ErrInvalidPort for a bad broker port,
//     mqtt.ErrConnectionFailed if the client cannot be created, or
//     ErrInvalidOption for a negative publish timeout
func (b *Builder) Build() (*Appender, error) {
	if b.publishTimeout < 0 {
		return nil, fmt.Errorf("%w: publish timeout %v is negative", ErrInvalidOption, b.publishTimeout)
	}

	addr, err := mqtt.ParseAddress(b.broker)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := mqtt.Options{
		ClientID: b.clientID,
		Username: b.username,
		Password: b.password,
		Logger:   logger,
		Dialer:   b.dialer,
	}
	if b.metrics != nil {
		opts.OnEvent = b.metrics.ObserveEvent
	}

	session, err := mqtt.Open(addr, opts)
	if err != nil {
		return nil, err
	}

	qos := QoSFromInt(b.qos)
	logger.Info("MQTT appender ready",
		"broker", addr.String(),
		"client_id", b.clientID,
		"topic", b.topic,
		"qos", qos.String(),
		"authenticated", b.username != "" && b.password != "",
	)

	return &Appender{
		conn:           session,
		encoder:        b.encoder,
		topic:          b.topic,
		qos:            qos,
		publishTimeout: b.publishTimeout,
		overflow:       b.overflow,
		logger:         logger,
		metrics:        b.metrics,
	}, nil
}

// FromConfig returns a builder populated from an appender configuration
// block. The encoder block is resolved through reg; a nil reg uses the
// built-in encoders.
//
// The caller may add a logger and metrics before calling Build.
func FromConfig(cfg config.AppenderConfig, reg *encode.Registry) (*Builder, error) {
	if reg == nil {
		reg = encode.NewRegistry()
	}

	enc, err := reg.Build(cfg.Encoder)
	if err != nil {
		return nil, err
	}

	overflow, err := ParseOverflow(cfg.Overflow)
	if err != nil {
		return nil, err
	}

	b := NewBuilder().
		QoS(cfg.QoS).
		Username(cfg.Username).
		Password(cfg.Password).
		Encoder(enc).
		PublishTimeout(cfg.PublishTimeout).
		Overflow(overflow)

	// Empty keys keep the builder defaults.
	if cfg.Broker != "" {
		b.Broker(cfg.Broker)
	}
	if cfg.ClientID != "" {
		b.ClientID(cfg.ClientID)
	}
	if cfg.Topic != "" {
		b.Topic(cfg.Topic)
	}

	return b, nil
}
