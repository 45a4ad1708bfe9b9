package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPort is the standard MQTT port, used when an address has none.
const DefaultPort uint16 = 1883

// schemes lists the recognised address prefixes. Secure schemes dial TLS.
var schemes = []struct {
	prefix string
	secure bool
}{
	{"mqtt://", false},
	{"mqtts://", true},
	{"tcp://", false},
	{"ssl://", true},
	{"tls://", true},
}

// Address is a parsed broker address.
type Address struct {
	Host string
	Port uint16

	// TLS is set for mqtts://, ssl:// and tls:// addresses.
	TLS bool
}

// ParseAddress parses a broker URL such as "mqtt://broker.local:1883".
//
// A recognised scheme prefix is stripped, then the last colon separates
// host from port. Without a colon the whole remainder is the host and the
// port defaults to 1883.
//
// Returns:
//   - Address: host, port and TLS flag
//   - error: ErrInvalidPort if the port is not an unsigned 16-bit integer
func ParseAddress(raw string) (Address, error) {
	rest := raw
	secure := false
	for _, s := range schemes {
		if strings.HasPrefix(rest, s.prefix) {
			rest = rest[len(s.prefix):]
			secure = s.secure
			break
		}
	}

	i := strings.LastIndexByte(rest, ':')
	if i < 0 {
		return Address{Host: rest, Port: DefaultPort, TLS: secure}, nil
	}

	portStr := rest[i+1:]
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q in %q", ErrInvalidPort, portStr, raw)
	}

	return Address{Host: rest[:i], Port: uint16(port), TLS: secure}, nil
}

// String returns "host:port".
func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// BrokerURL returns the URL handed to paho (tcp:// or ssl://).
func (a Address) BrokerURL() string {
	scheme := "tcp"
	if a.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, a.Host, a.Port)
}
