package encode

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-logship/internal/record"
)

// JSONEncoder writes each record as a single-line JSON object.
//
// Every object carries a fresh UUID in "id" so subscribers can discard
// duplicates redelivered under at-least-once QoS.
//
// Example output:
//
//	{"id":"5b0c…","time":"2026-01-02T15:04:05.123Z","level":"INFO","message":"hello","target":"app"}
type JSONEncoder struct {
	newID func() string
}

// NewJSONEncoder creates a JSON encoder.
func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{newID: uuid.NewString}
}

type jsonRecord struct {
	ID         string         `json:"id"`
	Time       string         `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Target     string         `json:"target,omitempty"`
	ModulePath string         `json:"module_path,omitempty"`
	File       string         `json:"file,omitempty"`
	Line       int            `json:"line,omitempty"`
	MDC        map[string]any `json:"mdc,omitempty"`
}

// Encode implements Encoder.
func (e *JSONEncoder) Encode(w Writer, r *record.Record) error {
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	out := jsonRecord{
		ID:         e.newID(),
		Time:       t.Format(time.RFC3339Nano),
		Level:      r.Level.String(),
		Message:    r.Message,
		Target:     r.Target,
		ModulePath: r.Module,
		File:       r.File,
		Line:       r.Line,
	}
	if len(r.Attrs) > 0 {
		out.MDC = make(map[string]any, len(r.Attrs))
		for _, a := range r.Attrs {
			out.MDC[a.Key] = jsonValue(a.Value)
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding json record: %w", err)
	}
	data = append(data, '\n')

	_, err = w.Write(data)
	return err
}

// jsonValue makes attribute values that encoding/json cannot represent
// faithfully (errors, durations, arbitrary types) readable.
func jsonValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64,
		time.Time, map[string]any:
		return val
	case error:
		return val.Error()
	case time.Duration:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
