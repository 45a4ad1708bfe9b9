package mqtt

import (
	"sync"
	"sync/atomic"
	"time"
)

// eventBufferSize bounds the notification channel between paho callbacks
// and the lifecycle goroutine.
const eventBufferSize = 64

// EventKind classifies a connection lifecycle notification.
type EventKind int

// Lifecycle notification kinds.
const (
	// EventConnAck: the broker accepted the connection (initial or reconnect).
	EventConnAck EventKind = iota + 1

	// EventIncoming: a packet arrived that no handler consumed.
	EventIncoming

	// EventOutgoing: a publish was written to the broker.
	EventOutgoing

	// EventError: the connection was lost.
	EventError

	// EventReconnecting: paho is about to retry the connection.
	EventReconnecting
)

// String returns a short lower-case name, suitable as a metric label.
func (k EventKind) String() string {
	switch k {
	case EventConnAck:
		return "connack"
	case EventIncoming:
		return "incoming"
	case EventOutgoing:
		return "outgoing"
	case EventError:
		return "error"
	case EventReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Event is a single connection lifecycle notification.
type Event struct {
	Kind EventKind
	Time time.Time

	// Topic is set for EventIncoming and EventOutgoing.
	Topic string

	// Err is set for EventError.
	Err error
}

// eventStream is the bounded notification channel.
//
// emit never blocks: paho invokes callbacks from its own goroutines and a
// slow consumer must not stall the client. Events emitted after close are
// discarded.
type eventStream struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped atomic.Uint64
}

func newEventStream(size int) *eventStream {
	return &eventStream{ch: make(chan Event, size)}
}

func (s *eventStream) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

func (s *eventStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
