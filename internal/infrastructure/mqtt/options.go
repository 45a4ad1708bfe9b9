package mqtt

import (
	"crypto/tls"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time for a single connect attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 30 * time.Second

	// defaultReconnectInterval is the first retry delay after a failed connect.
	defaultReconnectInterval = 1 * time.Second

	// defaultMaxReconnectInterval caps paho's exponential reconnect backoff.
	defaultMaxReconnectInterval = 60 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// maxPayloadSize guards against oversized records (1MB).
	maxPayloadSize = 1 << 20

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
//
// The logger must not route back into an MQTT appender publishing through
// the same session, or lifecycle events would feed themselves.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Transport is the subset of the paho client a Session drives.
// pahomqtt.Client satisfies it.
type Transport interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Dialer creates a Transport from fully built paho options.
type Dialer func(opts *pahomqtt.ClientOptions) (Transport, error)

// Options configures a Session.
type Options struct {
	ClientID string

	// Username and Password are only applied when both are non-empty.
	Username string
	Password string

	// KeepAlive defaults to 30s.
	KeepAlive time.Duration

	// MaxReconnectInterval caps reconnect backoff; defaults to 60s.
	MaxReconnectInterval time.Duration

	// Logger receives lifecycle events. Optional.
	Logger Logger

	// OnEvent is called from the lifecycle goroutine for every event. Optional.
	OnEvent func(Event)

	// Dialer overrides how the transport is created. Defaults to DialPaho.
	Dialer Dialer
}

// DialPaho creates a paho client and starts connecting in the background.
//
// Connect-retry is enabled in the options built by Open, so the returned
// client keeps trying until the broker answers; the caller never waits for
// the initial connection.
func DialPaho(opts *pahomqtt.ClientOptions) (Transport, error) {
	client := pahomqtt.NewClient(opts)
	client.Connect()
	return client, nil
}

// buildClientOptions creates paho MQTT options for a log-shipping session.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on the address)
//   - Client ID for identification
//   - Authentication credentials (only when both are provided)
//   - Auto-reconnect and connect-retry with exponential backoff
//   - TLS configuration (for secure addresses)
//   - Clean session mode
func buildClientOptions(addr Address, o Options) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(addr.BrokerURL())
	opts.SetClientID(o.ClientID)

	if o.Username != "" && o.Password != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	// Clean session - log shipping keeps no broker-side state
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(defaultReconnectInterval)
	maxReconnect := o.MaxReconnectInterval
	if maxReconnect <= 0 {
		maxReconnect = defaultMaxReconnectInterval
	}
	opts.SetMaxReconnectInterval(maxReconnect)

	opts.SetConnectTimeout(defaultConnectTimeout)

	keepAlive := o.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	opts.SetKeepAlive(keepAlive)

	if addr.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
			ServerName: addr.Host,
		})
	}

	return opts
}
