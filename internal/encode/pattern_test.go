package encode

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-logship/internal/record"
)

// recordingWriter captures output and the styles applied to it.
type recordingWriter struct {
	bytes.Buffer
	styles []Style
}

func (w *recordingWriter) SetStyle(s Style) error {
	w.styles = append(w.styles, s)
	return nil
}

func testRecord() *record.Record {
	return &record.Record{
		Time:    time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		Level:   record.LevelWarn,
		Message: "disk almost full",
		Target:  "storage",
		Module:  "app/storage",
		File:    "storage.go",
		Line:    42,
		Attrs:   []record.Attr{{Key: "volume", Value: "/data"}},
	}
}

func encodeString(t *testing.T, pattern string, r *record.Record) string {
	t.Helper()
	enc, err := NewPatternEncoder(pattern)
	require.NoError(t, err)

	var w recordingWriter
	require.NoError(t, enc.Encode(&w, r))
	return w.String()
}

func TestPatternEncoder_Formatters(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{"literal only", "plain text", "plain text"},
		{"short names", "[{l}] {t} - {m}{n}", "[WARN] storage - disk almost full\n"},
		{"long names", "{level} {target} {message}", "WARN storage disk almost full"},
		{"module file line", "{M} {f}:{L}", "app/storage storage.go:42"},
		{"mdc present", "{X(volume)}", "/data"},
		{"mdc default", "{X(user)(anonymous)}", "anonymous"},
		{"mdc missing no default", "<{mdc(user)}>", "<>"},
		{"escaped braces", "{{{l}}}", "{WARN}"},
		{"left pad", "[{l:<6}]", "[WARN  ]"},
		{"default alignment is left", "[{l:6}]", "[WARN  ]"},
		{"right pad", "[{l:>6}]", "[  WARN]"},
		{"truncate", "[{m:.4}]", "[disk]"},
		{"date strftime utc", "{d(%Y-%m-%d %H:%M:%S)(utc)}", "2026-03-14 15:09:26"},
		{"date default utc", "{d(%Y)(utc)}", "2026"},
		{"pid", "{P}", strconv.Itoa(pidForTest())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeString(t, tt.pattern, testRecord()))
		})
	}
}

func pidForTest() int {
	n, _ := strconv.Atoi(pid)
	return n
}

func TestPatternEncoder_DefaultDate(t *testing.T) {
	r := testRecord()
	got := encodeString(t, "{d}", r)

	parsed, err := time.Parse(time.RFC3339Nano, got)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(r.Time), "parsed %v, want %v", parsed, r.Time)
}

func TestPatternEncoder_DefaultPattern(t *testing.T) {
	r := testRecord()
	enc := DefaultPatternEncoder()
	assert.Equal(t, DefaultPattern, enc.Pattern())

	var w recordingWriter
	require.NoError(t, enc.Encode(&w, r))

	want := r.Time.Local().Format(time.RFC3339Nano) + " WARN storage - disk almost full\n"
	assert.Equal(t, want, w.String())
}

func TestPatternEncoder_LineZeroIsEmpty(t *testing.T) {
	r := testRecord()
	r.Line = 0
	assert.Equal(t, "x:", encodeString(t, "x:{L}", r))
}

func TestPatternEncoder_Highlight(t *testing.T) {
	enc, err := NewPatternEncoder("{h({l})} {m}")
	require.NoError(t, err)

	r := testRecord()
	r.Level = record.LevelError

	var w recordingWriter
	require.NoError(t, enc.Encode(&w, r))

	assert.Equal(t, "ERROR disk almost full", w.String())
	require.Len(t, w.styles, 2)
	assert.Equal(t, Style{Text: ColorRed, Intense: true}, w.styles[0])
	assert.Equal(t, Style{}, w.styles[1], "highlight must reset the style")
}

func TestPatternEncoder_HighlightStylesPerLevel(t *testing.T) {
	tests := []struct {
		level record.Level
		want  Color
	}{
		{record.LevelWarn, ColorYellow},
		{record.LevelInfo, ColorGreen},
		{record.LevelDebug, ColorCyan},
		{record.LevelTrace, ColorBlue},
	}

	enc, err := NewPatternEncoder("{highlight({m})}")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			r := testRecord()
			r.Level = tt.level

			var w recordingWriter
			require.NoError(t, enc.Encode(&w, r))
			require.NotEmpty(t, w.styles)
			assert.Equal(t, tt.want, w.styles[0].Text)
		})
	}
}

func TestNewPatternEncoder_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"unknown formatter", "{q}"},
		{"empty formatter", "{}"},
		{"unclosed brace", "{l"},
		{"unmatched close", "l}"},
		{"unterminated argument", "{d(%H"},
		{"highlight without argument", "{h}"},
		{"highlight with bad inner", "{h({nope})}"},
		{"bad timezone", "{d(%H)(mars)}"},
		{"mdc without key", "{X}"},
		{"argument on level", "{l(x)}"},
		{"missing max width", "{l:5.}"},
		{"min width too large", "{m:4097}"},
		{"max width too large", "{m:.4097}"},
		{"min width overflows int", "{m:9223372036854775807}"},
		{"max width overflows int", "{m:1.99999999999999999999}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPatternEncoder(tt.pattern)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPattern), "error = %v", err)
		})
	}
}

func TestPatternEncoder_WidthAtLimit(t *testing.T) {
	got := encodeString(t, "{m:>4096}", &record.Record{Level: record.LevelInfo, Message: "x"})
	assert.Len(t, got, MaxWidth)
	assert.True(t, strings.HasSuffix(got, " x"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("sink closed") }
func (failingWriter) SetStyle(Style) error     { return nil }

func TestPatternEncoder_PropagatesWriteError(t *testing.T) {
	enc := DefaultPatternEncoder()
	err := enc.Encode(failingWriter{}, testRecord())
	assert.EqualError(t, err, "sink closed")
}
