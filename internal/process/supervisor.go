package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Stream names the child output a line was read from.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// Status represents the current state of a supervised child.
type Status string

const (
	StatusStopped    Status = "stopped"
	StatusRunning    Status = "running"
	StatusRestarting Status = "restarting"
	StatusFailed     Status = "failed"
)

// MaxLineSize caps a single output line. A longer line stops forwarding for
// that stream; the rest of it is drained and discarded.
const MaxLineSize = 1 << 20

var (
	// ErrNoBinary is returned by Run when Config.Binary is empty.
	ErrNoBinary = errors.New("process: binary is required")

	// ErrStartFailed wraps exec failures. A child that cannot be started is
	// never retried.
	ErrStartFailed = errors.New("process: start failed")

	// ErrRestartsExhausted is returned once MaxRestartAttempts is exceeded.
	ErrRestartsExhausted = errors.New("process: restart attempts exhausted")
)

// Config holds configuration for a supervised child.
type Config struct {
	// Name identifies the child in log output. Defaults to Binary.
	Name string

	// Binary is the executable, resolved through PATH when it has no slash.
	Binary string
	Args   []string

	// Env is appended to the parent's environment.
	Env []string

	// WorkDir is the working directory. Empty inherits the parent's.
	WorkDir string

	// RestartOnFailure restarts the child after a non-zero exit.
	RestartOnFailure bool

	// RestartDelay is the pause between an exit and the next start.
	RestartDelay time.Duration

	// MaxRestartAttempts limits restarts. 0 means unlimited.
	MaxRestartAttempts int

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration

	// OutputGrace bounds how long output is still collected after the child
	// exits, for background processes that inherited its stdout or stderr.
	OutputGrace time.Duration

	// OnLine receives every non-empty output line. It is called from one
	// goroutine per stream, so it must be safe for concurrent use.
	OnLine func(stream Stream, line string)

	// OnExit is called after every exit with the result of Wait.
	OnExit func(err error)
}

// DefaultConfig returns a Config with restart enabled.
func DefaultConfig(binary string, args []string) Config {
	return Config{
		Name:               binary,
		Binary:             binary,
		Args:               args,
		RestartOnFailure:   true,
		RestartDelay:       5 * time.Second,
		MaxRestartAttempts: 10,
		GracefulTimeout:    10 * time.Second,
		OutputGrace:        2 * time.Second,
	}
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Supervisor runs a child process, forwards its output line by line and
// restarts it after failures.
type Supervisor struct {
	config Config
	logger Logger

	mu        sync.RWMutex
	status    Status
	pid       int
	restarts  int
	lines     map[Stream]int
	lastError error
	startTime time.Time
}

// New creates a supervisor. Zero durations get defaults.
func New(cfg Config) *Supervisor {
	if cfg.Name == "" {
		cfg.Name = cfg.Binary
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 5 * time.Second
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}
	if cfg.OutputGrace <= 0 {
		cfg.OutputGrace = 2 * time.Second
	}

	return &Supervisor{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
		lines:  make(map[Stream]int, 2),
	}
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Run starts the child and blocks until supervision ends.
//
// Supervision ends when the child exits with status zero, when it fails and
// restarts are disabled or exhausted, or when ctx is cancelled. Cancellation
// stops the child's whole process group and returns nil.
//
// Returns:
//   - error: ErrNoBinary, ErrStartFailed, ErrRestartsExhausted or the
//     child's exit error when restarts are disabled
func (s *Supervisor) Run(ctx context.Context) error {
	if s.config.Binary == "" {
		return ErrNoBinary
	}

	for {
		err := s.runOnce(ctx)

		if ctx.Err() != nil {
			s.setStatus(StatusStopped)
			s.logger.Info("process stopped", "name", s.config.Name)
			return nil
		}
		if errors.Is(err, ErrStartFailed) {
			s.fail(err)
			return err
		}
		if err == nil {
			s.setStatus(StatusStopped)
			s.logger.Info("process exited", "name", s.config.Name)
			return nil
		}

		s.fail(err)
		s.logger.Warn("process exited unexpectedly", "name", s.config.Name, "error", err)

		if !s.config.RestartOnFailure {
			return err
		}

		s.mu.Lock()
		if s.config.MaxRestartAttempts > 0 && s.restarts >= s.config.MaxRestartAttempts {
			attempts := s.restarts
			s.mu.Unlock()
			s.logger.Error("max restart attempts reached", "name", s.config.Name, "attempts", attempts)
			return fmt.Errorf("%w after %d attempts: %w", ErrRestartsExhausted, attempts, err)
		}
		s.restarts++
		attempt := s.restarts
		s.status = StatusRestarting
		s.mu.Unlock()

		s.logger.Info("restarting process",
			"name", s.config.Name,
			"attempt", attempt,
			"delay", s.config.RestartDelay,
		)

		select {
		case <-ctx.Done():
			s.setStatus(StatusStopped)
			return nil
		case <-time.After(s.config.RestartDelay):
		}
	}
}

// runOnce starts the child and waits for it to exit or for ctx to end.
func (s *Supervisor) runOnce(ctx context.Context) error {
	cmd := exec.Command(s.config.Binary, s.config.Args...) //nolint:gosec // the operator chooses the child

	// Own process group so shutdown reaches grandchildren too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if s.config.Env != nil {
		cmd.Env = append(os.Environ(), s.config.Env...)
	}
	if s.config.WorkDir != "" {
		cmd.Dir = s.config.WorkDir
	}

	// exec copies the child's output into these pipes. WaitDelay caps that
	// copy once the child itself has exited.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.WaitDelay = s.config.OutputGrace

	closeWriters := func() {
		_ = stdoutW.Close()
		_ = stderrW.Close()
	}

	if err := cmd.Start(); err != nil {
		closeWriters()
		return fmt.Errorf("%w: %s: %w", ErrStartFailed, s.config.Name, err)
	}

	pid := cmd.Process.Pid
	s.mu.Lock()
	s.pid = pid
	s.status = StatusRunning
	s.startTime = time.Now()
	s.mu.Unlock()
	s.logger.Info("process started", "name", s.config.Name, "pid", pid)

	var readers sync.WaitGroup
	readers.Add(2)
	go s.forward(StreamStdout, stdoutR, &readers)
	go s.forward(StreamStderr, stderrR, &readers)

	exitCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		// Wait has finished copying; end the streams so the readers return.
		closeWriters()
		exitCh <- err
	}()

	var exitErr error
	select {
	case exitErr = <-exitCh:
	case <-ctx.Done():
		exitErr = s.terminate(pid, exitCh)
	}

	// Every line is forwarded before the exit is reported.
	readers.Wait()

	if errors.Is(exitErr, exec.ErrWaitDelay) {
		s.logger.Warn("output still held open after exit, stopped reading",
			"name", s.config.Name,
			"grace", s.config.OutputGrace,
		)
		exitErr = nil
	}

	s.mu.Lock()
	s.pid = 0
	s.mu.Unlock()

	if s.config.OnExit != nil {
		s.config.OnExit(exitErr)
	}
	return exitErr
}

// forward scans r and hands each line to OnLine.
func (s *Supervisor) forward(stream Stream, r io.ReadCloser, wg *sync.WaitGroup) {
	defer wg.Done()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		s.mu.Lock()
		s.lines[stream]++
		s.mu.Unlock()
		if s.config.OnLine != nil {
			s.config.OnLine(stream, line)
		}
	}

	if err := sc.Err(); err != nil {
		s.logger.Warn("output stream abandoned", "name", s.config.Name, "stream", stream, "error", err)
		// Keep the pipe drained so the child never blocks on a full buffer.
		_, _ = io.Copy(io.Discard, r)
	}
	_ = r.Close()
}

// terminate sends SIGTERM to the process group, escalating to SIGKILL after
// GracefulTimeout, and returns the exit result.
func (s *Supervisor) terminate(pid int, exitCh <-chan error) error {
	s.logger.Info("stopping process", "name", s.config.Name, "pid", pid)

	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Warn("failed to send SIGTERM to process group", "name", s.config.Name, "error", err)
	}

	select {
	case err := <-exitCh:
		return err
	case <-time.After(s.config.GracefulTimeout):
		s.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", s.config.Name,
			"timeout", s.config.GracefulTimeout,
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Error("failed to kill process group", "name", s.config.Name, "error", err)
	}
	return <-exitCh
}

func (s *Supervisor) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Supervisor) fail(err error) {
	s.mu.Lock()
	s.status = StatusFailed
	s.lastError = err
	s.mu.Unlock()
}

// Status returns the current status of the child.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// RestartCount returns how many times the child has been restarted.
func (s *Supervisor) RestartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restarts
}

// LastError returns the error from the most recent failed run.
func (s *Supervisor) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Stats summarises a supervision run.
type Stats struct {
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	PID          int           `json:"pid,omitempty"`
	Uptime       time.Duration `json:"uptime,omitempty"`
	RestartCount int           `json:"restart_count"`
	StdoutLines  int           `json:"stdout_lines"`
	StderrLines  int           `json:"stderr_lines"`
	LastError    string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the child.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Name:         s.config.Name,
		Status:       s.status,
		PID:          s.pid,
		RestartCount: s.restarts,
		StdoutLines:  s.lines[StreamStdout],
		StderrLines:  s.lines[StreamStderr],
	}
	if s.status == StatusRunning {
		stats.Uptime = time.Since(s.startTime)
	}
	if s.lastError != nil {
		stats.LastError = s.lastError.Error()
	}
	return stats
}

// ExitCode extracts the exit status from a Run or OnExit error.
// It returns 0 for nil and -1 when err carries no exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
