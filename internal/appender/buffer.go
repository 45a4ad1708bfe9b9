package appender

import (
	"bytes"

	"github.com/nerrad567/gray-logic-logship/internal/encode"
)

// payloadBuffer collects one encoded record. MQTT payloads carry no
// styling, so style changes are accepted and dropped.
type payloadBuffer struct {
	bytes.Buffer
}

var _ encode.Writer = (*payloadBuffer)(nil)

func (*payloadBuffer) SetStyle(encode.Style) error { return nil }
