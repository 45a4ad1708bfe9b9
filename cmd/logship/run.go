package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-logship/internal/process"
	"github.com/nerrad567/gray-logic-logship/internal/record"
)

type runOptions struct {
	stdoutLevel  record.Level
	stderrLevel  record.Level
	target       string
	wait         time.Duration
	restart      bool
	restartDelay time.Duration
	maxRestarts  int
	grace        time.Duration
	passthrough  bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		stdoutLevel string
		stderrLevel string
		opts        runOptions
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- COMMAND [ARGS...]",
		Short: "Run a command and publish its output lines as log records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.stdoutLevel, err = record.ParseLevel(stdoutLevel); err != nil {
				return err
			}
			if opts.stderrLevel, err = record.ParseLevel(stderrLevel); err != nil {
				return err
			}
			if opts.target == "" {
				opts.target = filepath.Base(args[0])
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runChild(cmd.Context(), ctx, cfg, args, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	// Everything after COMMAND belongs to the child.
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().StringVar(&stdoutLevel, "stdout-level", "info", "Level for lines written to stdout")
	cmd.Flags().StringVar(&stderrLevel, "stderr-level", "warn", "Level for lines written to stderr")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Record target (default the command's base name)")
	cmd.Flags().DurationVar(&opts.wait, "wait", 5*time.Second, "How long to wait for the broker before starting the command")
	cmd.Flags().BoolVar(&opts.restart, "restart", false, "Restart the command when it exits non-zero")
	cmd.Flags().DurationVar(&opts.restartDelay, "restart-delay", 5*time.Second, "Pause before each restart")
	cmd.Flags().IntVar(&opts.maxRestarts, "max-restarts", 10, "Restart limit, 0 for unlimited")
	cmd.Flags().DurationVar(&opts.grace, "grace", 10*time.Second, "How long the command gets to exit after SIGTERM")
	cmd.Flags().BoolVar(&opts.passthrough, "passthrough", false, "Also copy the command's output to logship's own stdout and stderr")

	return cmd
}

// shutdownDrain is how long lines written after shutdown keep publishing
// beyond the child's SIGTERM grace period.
const shutdownDrain = 2 * time.Second

// recordAppender is the part of *appender.Appender that run needs.
type recordAppender interface {
	Append(ctx context.Context, rec *record.Record) error
}

// runChild supervises args[0] and publishes every output line until the
// child is done or ctx ends. A child that fails for good fails the run.
func runChild(ctx context.Context, cc *commandContext, cfg *config.Config, args []string, opts runOptions, stdout, stderr io.Writer) error {
	log := cc.diagnostics()

	reg := newRegistry()
	app, err := cc.buildAppender(log, reg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := waitConnected(ctx, app, opts.wait); err != nil {
		log.Warn("broker not reachable yet, continuing", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if err := serveMetrics(gctx, g, cfg, log, app, reg); err != nil {
		return err
	}

	var runErr error
	g.Go(func() error {
		defer cancel()
		runErr = superviseChild(gctx, app, log, args, opts, stdout, stderr)
		return nil
	})

	err = g.Wait()
	if runErr != nil {
		return fmt.Errorf("running %s: %w", args[0], runErr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// superviseChild runs the child until it is done or ctx ends, publishing
// its output through app.
//
// Shutting down signals the child, and whatever it prints while stopping
// still matters. Publishing therefore uses a context that survives ctx by
// the SIGTERM grace period plus shutdownDrain.
func superviseChild(ctx context.Context, app recordAppender, log *logging.Logger, args []string, opts runOptions, stdout, stderr io.Writer) error {
	shipCtx, stopShipping := context.WithCancel(context.WithoutCancel(ctx))
	defer stopShipping()
	stopWatch := context.AfterFunc(ctx, func() {
		time.AfterFunc(opts.grace+shutdownDrain, stopShipping)
	})
	defer stopWatch()

	ship := &lineShipper{
		ctx:         shipCtx,
		app:         app,
		opts:        opts,
		stdout:      stdout,
		stderr:      stderr,
		onFailure:   func(err error) { log.Warn("line not published", "error", err) },
		passthrough: opts.passthrough,
	}

	sup := process.New(process.Config{
		Name:               opts.target,
		Binary:             args[0],
		Args:               args[1:],
		RestartOnFailure:   opts.restart,
		RestartDelay:       opts.restartDelay,
		MaxRestartAttempts: opts.maxRestarts,
		GracefulTimeout:    opts.grace,
		OnLine:             ship.ship,
		OnExit: func(err error) {
			log.Info("command exited", "name", opts.target, "exit_code", process.ExitCode(err))
		},
	})
	sup.SetLogger(log.With("component", "process"))

	err := sup.Run(ctx)
	log.Info("run totals",
		"published", ship.published.Load(),
		"failed", ship.failed.Load(),
		"restarts", sup.RestartCount(),
	)
	return err
}

// lineShipper turns child output lines into records.
type lineShipper struct {
	ctx         context.Context
	app         recordAppender
	opts        runOptions
	onFailure   func(error)
	passthrough bool

	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer

	published atomic.Int64
	failed    atomic.Int64
}

func (s *lineShipper) ship(stream process.Stream, line string) {
	level, echo := s.opts.stdoutLevel, s.stdout
	if stream == process.StreamStderr {
		level, echo = s.opts.stderrLevel, s.stderr
	}

	if s.passthrough {
		s.mu.Lock()
		fmt.Fprintln(echo, line)
		s.mu.Unlock()
	}

	rec := &record.Record{
		Time:    time.Now(),
		Level:   level,
		Message: line,
		Target:  s.opts.target,
		Attrs:   []record.Attr{{Key: "stream", Value: string(stream)}},
	}
	if err := s.app.Append(s.ctx, rec); err != nil {
		s.failed.Add(1)
		if s.onFailure != nil {
			s.onFailure(err)
		}
		return
	}
	s.published.Add(1)
}
