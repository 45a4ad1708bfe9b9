package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-logship/internal/process"
	"github.com/nerrad567/gray-logic-logship/internal/record"
)

// executeCommand runs the root command with args and returns its stdout.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logship.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// isolateEnv clears the environment variables that would leak into config loading.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOGSHIP_CONFIG",
		"LOGSHIP_MQTT_BROKER",
		"LOGSHIP_MQTT_CLIENT_ID",
		"LOGSHIP_MQTT_USERNAME",
		"LOGSHIP_MQTT_PASSWORD",
		"LOGSHIP_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "logship dev (commit unknown, built unknown)\n", out)
}

func TestCheckCommand(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
mqtt:
  broker: "mqtts://broker.example:8883"
  client_id: "edge-7"
  topic: "site/{level}"
  qos: 2
  username: "u"
  password: "p"
  publish_timeout: 1500ms
  overflow: drop
  encoder:
    kind: json
`)

	out, err := executeCommand(t, "", "check", "-c", path)
	require.NoError(t, err)

	for _, want := range []string{
		"ssl://broker.example:8883",
		"edge-7",
		"site/{level}",
		"exactly-once",
		"credentials      true",
		"json",
		"1.5s",
		"drop",
	} {
		assert.Contains(t, out, want)
	}
}

func TestCheckCommand_FlagOverrides(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "mqtt:\n  topic: \"from/file\"\n")

	out, err := executeCommand(t, "", "check", "-c", path, "--broker", "tcp://override:2883", "--topic", "from/flag")
	require.NoError(t, err)
	assert.Contains(t, out, "tcp://override:2883")
	assert.Contains(t, out, "from/flag")
	assert.NotContains(t, out, "from/file")
}

func TestCheckCommand_EnvConfigPath(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LOGSHIP_CONFIG", writeConfig(t, "mqtt:\n  client_id: \"from-env-path\"\n"))

	out, err := executeCommand(t, "", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "from-env-path")
}

func TestCheckCommand_DefaultsWithoutFile(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())

	out, err := executeCommand(t, "", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "tcp://localhost:1883")
	assert.Contains(t, out, "log4rs_client")
	assert.Contains(t, out, "at-most-once")
	assert.Contains(t, out, "unbounded")
}

func TestCheckCommand_InvalidPort(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())

	_, err := executeCommand(t, "", "check", "--broker", "mqtt://host:70000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, mqtt.ErrInvalidPort), "error = %v", err)
}

func TestConfig_ExplicitPathMustExist(t *testing.T) {
	isolateEnv(t)

	_, err := executeCommand(t, "", "check", "-c", "/nonexistent/logship.yaml")
	require.Error(t, err)
}

func TestConfig_InvalidFile(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "mqtt:\n  overflow: block\n")

	_, err := executeCommand(t, "", "check", "-c", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt.overflow")
}

func TestSendCommand_InvalidLevel(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())

	_, err := executeCommand(t, "", "send", "--level", "loud", "hello")
	require.Error(t, err)
}

func TestSendCommand_RequiresMessage(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())

	_, err := executeCommand(t, "", "send")
	require.Error(t, err)
}

func TestSendCommand_InvalidBrokerPort(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())

	_, err := executeCommand(t, "", "send", "--broker", "mqtt://localhost:abc", "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, mqtt.ErrInvalidPort), "error = %v", err)
}

func TestPipeCommand_UnreachableBrokerDrainsInput(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
logging:
  level: error
mqtt:
  broker: "mqtt://127.0.0.1:1"
`)

	done := make(chan error, 1)
	go func() {
		_, err := executeCommand(t, "one\ntwo\n\nthree\n", "pipe", "-c", path, "--wait", "0")
		done <- err
	}()

	select {
	case err := <-done:
		// Lines that fail to publish are skipped, not fatal.
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("pipe did not finish after EOF")
	}
}

func TestRunCommand_PassesThroughOutput(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
logging:
  level: error
mqtt:
  broker: "mqtt://127.0.0.1:1"
`)

	out, err := executeCommand(t, "", "run", "-c", path, "--wait", "0", "--passthrough",
		"--", "/bin/sh", "-c", "echo hello; echo oops >&2")
	require.NoError(t, err)
	assert.Contains(t, out, "hello\n")
	assert.Contains(t, out, "oops\n")
}

func TestRunCommand_ChildFailureFailsRun(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
logging:
  level: error
mqtt:
  broker: "mqtt://127.0.0.1:1"
`)

	_, err := executeCommand(t, "", "run", "-c", path, "--wait", "0", "--", "/bin/sh", "-c", "exit 4")
	require.Error(t, err)
	assert.Equal(t, 4, process.ExitCode(err))
}

func TestRunCommand_ChildFlagsAreNotParsed(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "logging:\n  level: error\nmqtt:\n  broker: \"mqtt://127.0.0.1:1\"\n")

	// --restart after the command belongs to echo, not to logship.
	out, err := executeCommand(t, "", "run", "-c", path, "--wait", "0", "--passthrough", "/bin/echo", "--restart")
	require.NoError(t, err)
	assert.Contains(t, out, "--restart")
}

// fakeAppender records what reaches Append and fails like the real
// appender once the publish context is done.
type fakeAppender struct {
	mu       sync.Mutex
	messages []string
	hello    chan struct{}
	once     sync.Once
}

func (f *fakeAppender) Append(ctx context.Context, rec *record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.messages = append(f.messages, rec.Message)
	f.mu.Unlock()
	f.once.Do(func() { close(f.hello) })
	return nil
}

func (f *fakeAppender) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func TestSuperviseChild_PublishesShutdownOutput(t *testing.T) {
	app := &fakeAppender{hello: make(chan struct{})}
	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error"}, "test")
	opts := runOptions{
		stdoutLevel: record.LevelInfo,
		stderrLevel: record.LevelWarn,
		target:      "sh",
		grace:       5 * time.Second,
	}
	script := "trap 'echo goodbye; exit 0' TERM; echo hello; while true; do sleep 0.05; done"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- superviseChild(ctx, app, log, []string{"/bin/sh", "-c", script}, opts, io.Discard, io.Discard)
	}()

	select {
	case <-app.hello:
	case <-time.After(5 * time.Second):
		t.Fatal("child output never reached the appender")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("superviseChild did not return after cancel")
	}
	assert.Equal(t, []string{"hello", "goodbye"}, app.Messages())
}

func TestRunCommand_InvalidLevel(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())

	_, err := executeCommand(t, "", "run", "--stderr-level", "loud", "--", "/bin/true")
	require.Error(t, err)
}

func TestReadLines(t *testing.T) {
	ctx := context.Background()

	var got []string
	for line := range readLines(ctx, strings.NewReader("a\nb\r\nc")) {
		require.NoError(t, line.err)
		got = append(got, line.text)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestReadLines_TooLong(t *testing.T) {
	long := strings.Repeat("x", maxLineSize+1)

	var lastErr error
	for line := range readLines(context.Background(), strings.NewReader(long)) {
		lastErr = line.err
	}
	assert.Error(t, lastErr)
}

func TestShouldSkipConfig(t *testing.T) {
	root := newRootCommand()
	for _, c := range root.Commands() {
		switch c.Name() {
		case "version":
			assert.True(t, shouldSkipConfig(c))
		case "send", "pipe", "run", "check":
			assert.False(t, shouldSkipConfig(c), c.Name())
		}
	}
	assert.True(t, shouldSkipConfig(root))
}
