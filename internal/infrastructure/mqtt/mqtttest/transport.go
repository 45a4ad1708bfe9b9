// Package mqtttest provides an instrumented in-memory MQTT transport for tests.
package mqtttest

import (
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Message is one recorded publish.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// Transport records publishes and tracks how many overlap.
//
// It satisfies mqtt.Transport. Connection callbacks registered in the paho
// options it was dialled with can be fired through the Simulate methods.
type Transport struct {
	// Delay is slept inside every Publish call, widening the window in
	// which overlapping calls would be observed.
	Delay time.Duration

	mu       sync.Mutex
	messages []Message
	failWith error
	hold     chan struct{}
	opts     *pahomqtt.ClientOptions

	open        atomic.Bool
	active      atomic.Int32
	maxActive   atomic.Int32
	calls       atomic.Int32
	disconnects atomic.Int32
}

// NewTransport returns a transport whose connection is open.
func NewTransport() *Transport {
	t := &Transport{}
	t.open.Store(true)
	return t
}

// Dial records the options and returns the transport. Tests adapt it to
// mqtt.Dialer with a one-line closure.
func (t *Transport) Dial(opts *pahomqtt.ClientOptions) *Transport {
	t.mu.Lock()
	t.opts = opts
	t.mu.Unlock()
	return t
}

// Options returns the paho options the transport was dialled with.
func (t *Transport) Options() *pahomqtt.ClientOptions {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opts
}

// SetOpen sets the connection state reported by IsConnectionOpen.
func (t *Transport) SetOpen(open bool) {
	t.open.Store(open)
}

// FailWith makes subsequent publish tokens complete with err (nil clears).
func (t *Transport) FailWith(err error) {
	t.mu.Lock()
	t.failWith = err
	t.mu.Unlock()
}

// Hold makes subsequent publish tokens stay pending until Release.
func (t *Transport) Hold() {
	t.mu.Lock()
	t.hold = make(chan struct{})
	t.mu.Unlock()
}

// Release completes every token pending since Hold.
func (t *Transport) Release() {
	t.mu.Lock()
	if t.hold != nil {
		close(t.hold)
		t.hold = nil
	}
	t.mu.Unlock()
}

// IsConnectionOpen implements mqtt.Transport.
func (t *Transport) IsConnectionOpen() bool {
	return t.open.Load()
}

// Publish implements mqtt.Transport.
func (t *Transport) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	n := t.active.Add(1)
	defer t.active.Add(-1)
	for {
		cur := t.maxActive.Load()
		if n <= cur || t.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	t.calls.Add(1)

	if t.Delay > 0 {
		time.Sleep(t.Delay)
	}

	var body []byte
	switch p := payload.(type) {
	case []byte:
		body = append([]byte(nil), p...)
	case string:
		body = []byte(p)
	}

	t.mu.Lock()
	t.messages = append(t.messages, Message{Topic: topic, QoS: qos, Retained: retained, Payload: body})
	tok := &Token{err: t.failWith, done: make(chan struct{})}
	hold := t.hold
	t.mu.Unlock()

	if hold == nil {
		close(tok.done)
	} else {
		go func() {
			<-hold
			close(tok.done)
		}()
	}
	return tok
}

// Disconnect implements mqtt.Transport.
func (t *Transport) Disconnect(uint) {
	t.disconnects.Add(1)
	t.open.Store(false)
}

// Messages returns a copy of all recorded publishes.
func (t *Transport) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.messages...)
}

// Calls returns the number of Publish invocations.
func (t *Transport) Calls() int {
	return int(t.calls.Load())
}

// MaxConcurrent returns the highest number of overlapping Publish calls seen.
func (t *Transport) MaxConcurrent() int {
	return int(t.maxActive.Load())
}

// Disconnects returns how many times Disconnect was called.
func (t *Transport) Disconnects() int {
	return int(t.disconnects.Load())
}

// SimulateConnect fires the OnConnect callback.
func (t *Transport) SimulateConnect() {
	if o := t.Options(); o != nil && o.OnConnect != nil {
		o.OnConnect(nil)
	}
}

// SimulateConnectionLost fires the connection-lost callback.
func (t *Transport) SimulateConnectionLost(err error) {
	t.open.Store(false)
	if o := t.Options(); o != nil && o.OnConnectionLost != nil {
		o.OnConnectionLost(nil, err)
	}
}

// SimulateReconnecting fires the reconnecting callback.
func (t *Transport) SimulateReconnecting() {
	if o := t.Options(); o != nil && o.OnReconnecting != nil {
		o.OnReconnecting(nil, o)
	}
}

// Token is a pahomqtt.Token completed by the fake transport.
type Token struct {
	err  error
	done chan struct{}
}

// Wait implements pahomqtt.Token.
func (t *Token) Wait() bool {
	<-t.done
	return true
}

// WaitTimeout implements pahomqtt.Token.
func (t *Token) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

// Done implements pahomqtt.Token.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Error implements pahomqtt.Token.
func (t *Token) Error() error {
	return t.err
}
