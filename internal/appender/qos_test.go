package appender

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQoSFromInt(t *testing.T) {
	tests := []struct {
		in   int
		want DeliveryLevel
	}{
		{0, AtMostOnce},
		{1, AtLeastOnce},
		{2, ExactlyOnce},
		{3, AtMostOnce},
		{-1, AtMostOnce},
		{255, AtMostOnce},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, QoSFromInt(tt.in), "QoSFromInt(%d)", tt.in)
	}
}

func TestDeliveryLevel_String(t *testing.T) {
	assert.Equal(t, "at-most-once", AtMostOnce.String())
	assert.Equal(t, "at-least-once", AtLeastOnce.String())
	assert.Equal(t, "exactly-once", ExactlyOnce.String())
	assert.Equal(t, "DeliveryLevel(9)", DeliveryLevel(9).String())
}

func TestParseOverflow(t *testing.T) {
	p, err := ParseOverflow("")
	assert.NoError(t, err)
	assert.Equal(t, OverflowError, p)

	p, err = ParseOverflow("DROP")
	assert.NoError(t, err)
	assert.Equal(t, OverflowDrop, p)

	_, err = ParseOverflow("block")
	assert.ErrorIs(t, err, ErrInvalidOption)
}
