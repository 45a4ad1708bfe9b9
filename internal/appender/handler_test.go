package appender

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-logship/internal/encode"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/mqtt/mqtttest"
)

type shippedJSON struct {
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Target     string         `json:"target"`
	ModulePath string         `json:"module_path"`
	File       string         `json:"file"`
	Line       int            `json:"line"`
	MDC        map[string]any `json:"mdc"`
}

func jsonAppender(t *testing.T) (*Appender, *mqtttest.Transport) {
	t.Helper()
	return buildFake(t, func(b *Builder) {
		b.Topic("logs/{level}").Encoder(encode.NewJSONEncoder())
	})
}

func lastShipped(t *testing.T, ft *mqtttest.Transport) (mqtttest.Message, shippedJSON) {
	t.Helper()
	msgs := ft.Messages()
	require.NotEmpty(t, msgs)
	msg := msgs[len(msgs)-1]

	var out shippedJSON
	require.NoError(t, json.Unmarshal(msg.Payload, &out))
	return msg, out
}

func TestHandler_ConvertsRecord(t *testing.T) {
	app, ft := jsonAppender(t)
	logger := slog.New(NewHandler(app, nil))

	logger.Info("door opened", "zone", "hall", "count", 3)

	msg, got := lastShipped(t, ft)
	assert.Equal(t, "logs/info", msg.Topic)
	assert.Equal(t, "INFO", got.Level)
	assert.Equal(t, "door opened", got.Message)
	assert.Equal(t, DefaultTarget, got.Target)
	assert.Equal(t, map[string]any{"zone": "hall", "count": float64(3)}, got.MDC)
	assert.Empty(t, got.File, "source is off by default")
}

func TestHandler_GroupsAndComponentTarget(t *testing.T) {
	app, ft := jsonAppender(t)
	logger := slog.New(NewHandler(app, nil)).
		With("component", "lighting").
		WithGroup("req").
		With("id", "r-1")

	logger.Warn("slow", slog.Group("timing", "ms", 250), slog.Group("empty"))

	msg, got := lastShipped(t, ft)
	assert.Equal(t, "logs/warn", msg.Topic)
	assert.Equal(t, "lighting", got.Target)
	assert.Equal(t, map[string]any{
		"component":     "lighting",
		"req.id":        "r-1",
		"req.timing.ms": float64(250),
	}, got.MDC)
}

func TestHandler_ComponentInsideGroupIsAnAttribute(t *testing.T) {
	app, ft := jsonAppender(t)
	logger := slog.New(NewHandler(app, &HandlerOptions{Target: "api"})).WithGroup("peer")

	logger.Info("hello", "component", "other")

	_, got := lastShipped(t, ft)
	assert.Equal(t, "api", got.Target)
	assert.Equal(t, "other", got.MDC["peer.component"])
}

func TestHandler_RecordLevelComponent(t *testing.T) {
	app, ft := jsonAppender(t)
	logger := slog.New(NewHandler(app, nil))

	logger.Info("scoped", "component", "scheduler")

	_, got := lastShipped(t, ft)
	assert.Equal(t, "scheduler", got.Target)
}

func TestHandler_Enabled(t *testing.T) {
	app, ft := jsonAppender(t)
	ctx := context.Background()

	h := NewHandler(app, nil)
	assert.False(t, h.Enabled(ctx, slog.LevelDebug))
	assert.True(t, h.Enabled(ctx, slog.LevelInfo))

	slog.New(h).Debug("hidden")
	assert.Zero(t, ft.Calls())

	trace := NewHandler(app, &HandlerOptions{Level: slog.LevelDebug - 4})
	slog.New(trace).Log(ctx, slog.LevelDebug-4, "very fine")

	msg, got := lastShipped(t, ft)
	assert.Equal(t, "logs/trace", msg.Topic)
	assert.Equal(t, "TRACE", got.Level)
}

func TestHandler_AddSource(t *testing.T) {
	app, ft := jsonAppender(t)
	logger := slog.New(NewHandler(app, &HandlerOptions{AddSource: true}))

	logger.Error("with source")

	_, got := lastShipped(t, ft)
	assert.True(t, strings.HasSuffix(got.File, "handler_test.go"), "file = %q", got.File)
	assert.Positive(t, got.Line)
	assert.Contains(t, got.ModulePath, "TestHandler_AddSource")
}

func TestHandler_ReturnsAppendError(t *testing.T) {
	app, ft := jsonAppender(t)
	ft.SetOpen(false)

	h := NewHandler(app, nil)
	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "unsent", 0))
	assert.ErrorIs(t, err, mqtt.ErrNotConnected)
}

func TestHandler_EmptyWithIsNoop(t *testing.T) {
	app, _ := jsonAppender(t)
	h := NewHandler(app, nil)

	assert.Same(t, h, h.WithGroup(""))
	assert.Same(t, h, h.WithAttrs(nil))
}
