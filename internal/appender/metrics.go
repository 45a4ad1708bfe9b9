package appender

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-logship/internal/record"
)

// Namespace prefixes every logship metric.
const Namespace = "logship"

// Error type label values for logship_appender_errors_total.
const (
	ErrTypeEncode       = "encode"
	ErrTypeNotConnected = "not_connected"
	ErrTypeTimeout      = "timeout"
	ErrTypeClosed       = "closed"
	ErrTypePublish      = "publish"
)

// Metrics holds the appender and connection collectors.
//
// All methods are safe on a nil *Metrics, so an appender built without
// metrics needs no special casing.
type Metrics struct {
	published        *prometheus.CounterVec
	errors           *prometheus.CounterVec
	dropped          prometheus.Counter
	publishDuration  prometheus.Histogram
	connectionEvents *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Returns an error if any registration fails.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "appender",
			Name:      "published_total",
			Help:      "Log records published to the broker, by level",
		}, []string{"level"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "appender",
			Name:      "errors_total",
			Help:      "Log records that failed to encode or publish, by type",
		}, []string{"type"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "appender",
			Name:      "dropped_total",
			Help:      "Log records discarded after a publish timeout",
		}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "appender",
			Name:      "publish_duration_seconds",
			Help:      "Time spent in the session publish, including the wait for the publish slot",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		connectionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "connection",
			Name:      "events_total",
			Help:      "Broker connection lifecycle events, by kind",
		}, []string{"kind"}),
	}

	err := errors.Join(
		reg.Register(m.published),
		reg.Register(m.errors),
		reg.Register(m.dropped),
		reg.Register(m.publishDuration),
		reg.Register(m.connectionEvents),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveEvent counts a connection lifecycle event. It is installed as the
// session's OnEvent hook.
func (m *Metrics) ObserveEvent(ev mqtt.Event) {
	if m == nil {
		return
	}
	m.connectionEvents.WithLabelValues(ev.Kind.String()).Inc()
}

func (m *Metrics) observePublish(d time.Duration) {
	if m == nil {
		return
	}
	m.publishDuration.Observe(d.Seconds())
}

func (m *Metrics) recordPublished(level record.Level) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(level.String()).Inc()
}

func (m *Metrics) recordError(errType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errType).Inc()
}

func (m *Metrics) recordDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// errorType classifies a session publish error for the errors metric.
func errorType(err error) string {
	switch {
	case errors.Is(err, mqtt.ErrNotConnected):
		return ErrTypeNotConnected
	case errors.Is(err, mqtt.ErrTimeout):
		return ErrTypeTimeout
	case errors.Is(err, mqtt.ErrClosed):
		return ErrTypeClosed
	default:
		return ErrTypePublish
	}
}
