package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/semaphore"
)

// Session owns one broker connection and its lifecycle goroutine.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Publish calls are serialised: at most one is in flight at a time.
//   - The lifecycle goroutine never takes the publish guard.
type Session struct {
	addr      Address
	clientID  string
	transport Transport

	// guard is a one-slot semaphore: a mutex whose acquisition can be
	// abandoned when the caller's context ends.
	guard *semaphore.Weighted

	events  *eventStream
	logger  Logger
	onEvent func(Event)

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
}

// Open creates a session and starts its lifecycle goroutine.
//
// It performs the following setup:
//  1. Builds paho options (keep-alive, credentials, reconnect, TLS)
//  2. Wires connection callbacks into the event stream
//  3. Dials the transport without waiting for the broker
//  4. Starts the goroutine that drains lifecycle events
//
// Parameters:
//   - addr: Parsed broker address
//   - opts: Session options
//
// Returns:
//   - *Session: Session ready for Publish; the connection may still be pending
//   - error: ErrConnectionFailed if the address is unusable or dialling fails
func Open(addr Address, opts Options) (*Session, error) {
	if addr.Host == "" {
		return nil, fmt.Errorf("%w: broker host is empty", ErrConnectionFailed)
	}

	s := &Session{
		addr:     addr,
		clientID: opts.ClientID,
		guard:    semaphore.NewWeighted(1),
		events:   newEventStream(eventBufferSize),
		logger:   opts.Logger,
		onEvent:  opts.OnEvent,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	popts := buildClientOptions(addr, opts)
	popts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		s.events.emit(Event{Kind: EventConnAck})
	})
	popts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.events.emit(Event{Kind: EventError, Err: err})
	})
	popts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		s.events.emit(Event{Kind: EventReconnecting})
	})
	popts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		s.events.emit(Event{Kind: EventIncoming, Topic: msg.Topic()})
	})

	dial := opts.Dialer
	if dial == nil {
		dial = DialPaho
	}
	transport, err := dial(popts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	s.transport = transport

	s.wg.Add(1)
	go s.driveLifecycle()

	return s, nil
}

// Publish sends one message to the broker.
//
// The call takes the session's publish guard, checks the connection, hands
// the message to paho and waits for the write to complete. The guard is
// held for the publish only.
//
// Parameters:
//   - ctx: Bounds the wait for the guard and for completion; without a
//     deadline the call blocks until the broker write finishes
//   - topic: Destination topic (must be non-empty)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message
//   - payload: Message body (max 1MB)
//
// Returns:
//   - error: nil on success, or wrapped ErrNotConnected, ErrTimeout,
//     ErrPublishFailed or ErrClosed
func (s *Session) Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if s.closed.Load() {
		return ErrClosed
	}

	if err := s.guard.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: waiting for publish slot: %w", ErrTimeout, err)
	}

	if !s.transport.IsConnectionOpen() {
		s.guard.Release(1)
		return ErrNotConnected
	}

	token := s.transport.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		// The write is still in flight; keep the slot until it settles so
		// publishes stay serialised.
		go func() {
			<-token.Done()
			s.guard.Release(1)
		}()
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
	s.guard.Release(1)

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	s.events.emit(Event{Kind: EventOutgoing, Topic: topic})
	return nil
}

// Close disconnects from the broker and stops the lifecycle goroutine.
//
// It waits for the goroutine to exit. Calling Close more than once is safe.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.transport.Disconnect(defaultDisconnectQuiesce)
		s.events.close()
		s.wg.Wait()
	})
	return nil
}

// HealthCheck verifies the broker connection is open.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Session) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if s.closed.Load() {
		return ErrClosed
	}
	if !s.transport.IsConnectionOpen() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the connection is currently open.
func (s *Session) IsConnected() bool {
	return !s.closed.Load() && s.transport.IsConnectionOpen()
}

// Address returns the broker address the session dials.
func (s *Session) Address() Address {
	return s.addr
}

// ClientID returns the client identifier presented to the broker.
func (s *Session) ClientID() string {
	return s.clientID
}

// DroppedEvents returns how many lifecycle events were discarded because
// the notification channel was full.
func (s *Session) DroppedEvents() uint64 {
	return s.events.dropped.Load()
}
