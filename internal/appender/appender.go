package appender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-logship/internal/encode"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-logship/internal/record"
)

// Connection is the part of mqtt.Session an Appender depends on.
type Connection interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
	HealthCheck(ctx context.Context) error
	Close() error
}

var _ Connection = (*mqtt.Session)(nil)

// Appender publishes encoded log records to an MQTT broker.
//
// An Appender is immutable after Build. It owns its connection: Close
// tears the connection down.
//
// Thread Safety:
//   - Append, Flush, HealthCheck and Close are safe for concurrent use.
//   - Encoding and topic resolution run concurrently; only the publish
//     itself is serialised by the connection.
type Appender struct {
	conn    Connection
	encoder encode.Encoder
	topic   string
	qos     DeliveryLevel

	publishTimeout time.Duration
	overflow       OverflowPolicy

	logger  mqtt.Logger
	metrics *Metrics
}

// Append encodes r and publishes it.
//
// The steps are:
//  1. Encode the record into a fresh payload buffer
//  2. Resolve the topic from the record's level
//  3. Publish with the configured QoS, not retained
//
// Parameters:
//   - ctx: Bounds the publish; with no deadline and no publish timeout the
//     call blocks until the broker write completes
//   - r: Record to publish
//
// Returns:
//   - error: nil on success (or when a timed-out record was dropped under
//     OverflowDrop), an error wrapping ErrEncode, or a *PublishError
func (a *Appender) Append(ctx context.Context, r *record.Record) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrEncode)
	}

	var buf payloadBuffer
	if err := a.encoder.Encode(&buf, r); err != nil {
		a.metrics.recordError(ErrTypeEncode)
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	topic := ResolveTopic(a.topic, r.Level)

	pubCtx := ctx
	if a.publishTimeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(ctx, a.publishTimeout)
		defer cancel()
	}

	start := time.Now()
	err := a.conn.Publish(pubCtx, topic, byte(a.qos), false, buf.Bytes())
	a.metrics.observePublish(time.Since(start))

	if err == nil {
		a.metrics.recordPublished(r.Level)
		return nil
	}

	// Only a timeout raised by our own deadline is subject to the overflow
	// policy; a caller cancelling ctx always gets the error.
	if a.overflow == OverflowDrop && errors.Is(err, mqtt.ErrTimeout) && ctx.Err() == nil {
		a.metrics.recordDropped()
		a.logger.Debug("log record dropped after publish timeout",
			"topic", topic,
			"timeout", a.publishTimeout,
		)
		return nil
	}

	a.metrics.recordError(errorType(err))
	return &PublishError{Topic: topic, Err: err}
}

// Flush is a no-op: every Append completes its publish before returning.
func (a *Appender) Flush() error {
	return nil
}

// Close closes the broker connection and stops its lifecycle goroutine.
// Appends after Close fail with a PublishError wrapping mqtt.ErrClosed.
func (a *Appender) Close() error {
	return a.conn.Close()
}

// HealthCheck reports whether the broker connection is usable.
func (a *Appender) HealthCheck(ctx context.Context) error {
	return a.conn.HealthCheck(ctx)
}

// Topic returns the topic template.
func (a *Appender) Topic() string {
	return a.topic
}

// QoS returns the delivery level used for every publish.
func (a *Appender) QoS() DeliveryLevel {
	return a.qos
}
