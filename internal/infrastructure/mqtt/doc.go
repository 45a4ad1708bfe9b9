// Package mqtt provides the broker session used to ship log records.
//
// This package manages:
//   - Parsing broker addresses (mqtt://, mqtts://, tcp:// prefixes)
//   - A single paho client per Session with keep-alive and auto-reconnect
//   - Serialised publishing: at most one publish in flight per session
//   - A lifecycle goroutine that drains connection notifications
//
// # Architecture
//
// Many goroutines publish through one session. The raw paho client is never
// exposed; callers only see Session.Publish, which takes a one-slot guard
// for the duration of a single publish.
//
//	log call sites ─┐
//	log call sites ─┼─► Session.Publish (guarded) ─► paho client ─► broker
//	log call sites ─┘                                     │
//	                                lifecycle goroutine ◄─┘ connect/lost/reconnect events
//
// Connection callbacks never block paho: they push Events into a bounded
// channel (dropping on overflow) that the lifecycle goroutine logs and
// forwards to an optional hook. Transport errors are absorbed there;
// paho's own backoff restores the connection.
//
// # Failure Semantics
//
//   - Publishing while the connection is down fails fast with ErrNotConnected.
//     Nothing is queued.
//   - Publish blocks until the broker write completes unless the context
//     carries a deadline; on expiry it returns ErrTimeout.
//   - Close disconnects, ends the lifecycle goroutine and waits for it.
//
// # Security Considerations
//
//   - mqtts://, ssl:// and tls:// addresses dial with TLS 1.2 or newer
//   - Credentials are only sent when both username and password are set
//
// # Usage
//
//	addr, err := mqtt.ParseAddress("mqtt://broker.local:1883")
//	if err != nil {
//	    return err
//	}
//	session, err := mqtt.Open(addr, mqtt.Options{ClientID: "logship"})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	err = session.Publish(ctx, "logs/info", 0, false, payload)
package mqtt
