package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/config"
)

func TestNewWithWriter_Format(t *testing.T) {
	tests := []struct {
		format   string
		wantJSON bool
	}{
		{format: "json", wantJSON: true},
		{format: "JSON", wantJSON: true},
		{format: "text"},
		{format: ""},
		{format: "logfmt"},
	}

	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			NewWithWriter(&buf, config.LoggingConfig{Format: tt.format}, "v1").Info("hello")

			isJSON := json.Valid(bytes.TrimSpace(buf.Bytes()))
			if isJSON != tt.wantJSON {
				t.Errorf("JSON output = %v, want %v: %s", isJSON, tt.wantJSON, buf.String())
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLogger_WithAddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.LoggingConfig{Format: "json"}, "v1")

	log.With("component", "mqtt").Info("connected")
	log.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"component":"mqtt"`) {
		t.Errorf("child entry missing component: %s", lines[0])
	}
	if strings.Contains(lines[1], "component") {
		t.Errorf("parent entry gained child attrs: %s", lines[1])
	}
}

func TestDefault(t *testing.T) {
	log := Default()
	if log == nil {
		t.Fatal("Default() returned nil")
	}
	if log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Default() should filter debug")
	}
}

func TestNewWithWriter_OutputContainsDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "json"}, "test")

	logger.Info("test message", "key", "value")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if logEntry["service"] != "logship" {
		t.Errorf("expected service='logship', got %v", logEntry["service"])
	}
	if logEntry["version"] != "test" {
		t.Errorf("expected version='test', got %v", logEntry["version"])
	}
	if logEntry["msg"] != "test message" {
		t.Errorf("expected msg='test message', got %v", logEntry["msg"])
	}
	if logEntry["key"] != "value" {
		t.Errorf("expected key='value', got %v", logEntry["key"])
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.LoggingConfig{Level: "warn", Format: "text"}, "test")

	logger.Info("hidden")
	logger.Warn("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(output, "shown") {
		t.Error("warn entry should be written at warn level")
	}
}

// captureHandler records messages it handles.
type captureHandler struct {
	level slog.Level
	attrs []slog.Attr
	msgs  *[]string
	err   error
}

func (h *captureHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	msg := r.Message
	for _, a := range h.attrs {
		msg += " " + a.String()
	}
	*h.msgs = append(*h.msgs, msg)
	return h.err
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &c
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func TestFanout(t *testing.T) {
	var debugMsgs, warnMsgs []string
	h := Fanout(
		&captureHandler{level: slog.LevelDebug, msgs: &debugMsgs},
		nil,
		&captureHandler{level: slog.LevelWarn, msgs: &warnMsgs},
	)
	logger := slog.New(h).With("component", "test")

	logger.Debug("one")
	logger.Warn("two")

	if got := strings.Join(debugMsgs, ","); got != "one component=test,two component=test" {
		t.Errorf("debug handler got %q", got)
	}
	if got := strings.Join(warnMsgs, ","); got != "two component=test" {
		t.Errorf("warn handler got %q", got)
	}
	if h.Enabled(context.Background(), LevelTrace) {
		t.Error("fanout should be disabled below every handler's level")
	}
}

func TestFanout_JoinsErrors(t *testing.T) {
	var a, b []string
	errA := errors.New("sink a down")
	h := Fanout(
		&captureHandler{msgs: &a, err: errA},
		&captureHandler{msgs: &b},
	)

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0))
	if !errors.Is(err, errA) {
		t.Errorf("Handle() error = %v, want %v", err, errA)
	}
	if len(b) != 1 {
		t.Error("second handler must still receive the record")
	}
}

func TestLogger_Tee(t *testing.T) {
	var buf bytes.Buffer
	var extra []string
	logger := NewWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "text"}, "test")

	teed := logger.Tee(&captureHandler{level: slog.LevelInfo, msgs: &extra})
	teed.Info("both")
	logger.Info("base only")

	if !strings.Contains(buf.String(), "both") || !strings.Contains(buf.String(), "base only") {
		t.Errorf("base output = %q", buf.String())
	}
	if len(extra) != 1 || !strings.HasPrefix(extra[0], "both") {
		t.Errorf("teed handler got %v", extra)
	}
}
