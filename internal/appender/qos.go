package appender

import "fmt"

// DeliveryLevel is the MQTT quality of service used for every publish.
type DeliveryLevel byte

// MQTT delivery levels.
const (
	AtMostOnce  DeliveryLevel = 0
	AtLeastOnce DeliveryLevel = 1
	ExactlyOnce DeliveryLevel = 2
)

// QoSFromInt maps a configured QoS number to a DeliveryLevel.
// Anything other than 0, 1 or 2 falls back to AtMostOnce.
func QoSFromInt(n int) DeliveryLevel {
	switch n {
	case 1:
		return AtLeastOnce
	case 2:
		return ExactlyOnce
	default:
		return AtMostOnce
	}
}

func (d DeliveryLevel) String() string {
	switch d {
	case AtMostOnce:
		return "at-most-once"
	case AtLeastOnce:
		return "at-least-once"
	case ExactlyOnce:
		return "exactly-once"
	default:
		return fmt.Sprintf("DeliveryLevel(%d)", byte(d))
	}
}
