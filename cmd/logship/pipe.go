package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-logship/internal/api"
	"github.com/nerrad567/gray-logic-logship/internal/appender"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-logship/internal/record"
)

// maxLineSize caps a single stdin line; longer lines fail the pipe.
const maxLineSize = 1 << 20

type pipeOptions struct {
	level           record.Level
	target          string
	wait            time.Duration
	shipDiagnostics bool
}

func newPipeCommand(ctx *commandContext) *cobra.Command {
	var (
		levelFlag string
		opts      pipeOptions
	)

	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Publish each line read from stdin as a log record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, err := record.ParseLevel(levelFlag)
			if err != nil {
				return err
			}
			opts.level = level

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runPipe(cmd.Context(), ctx, cfg, cmd.InOrStdin(), opts)
		},
	}

	cmd.Flags().StringVarP(&levelFlag, "level", "l", "info", "Level for every line")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "stdin", "Record target")
	cmd.Flags().DurationVar(&opts.wait, "wait", 5*time.Second, "How long to wait for the broker before reading")
	cmd.Flags().BoolVar(&opts.shipDiagnostics, "ship-diagnostics", false, "Also publish logship's own start/stop messages")

	return cmd
}

// runPipe publishes stdin until EOF or ctx ends.
//
// Publish failures are logged and the line skipped; the session keeps
// reconnecting underneath, so later lines go through once the broker is back.
func runPipe(ctx context.Context, cc *commandContext, cfg *config.Config, in io.Reader, opts pipeOptions) error {
	log := cc.diagnostics()

	reg := newRegistry()
	app, err := cc.buildAppender(log, reg)
	if err != nil {
		return err
	}
	defer app.Close()

	// The session logs through log; only the pipe's own messages may be
	// teed into the appender.
	status := log
	if opts.shipDiagnostics {
		status = log.Tee(appender.NewHandler(app, &appender.HandlerOptions{Target: "logship"}))
	}

	if err := waitConnected(ctx, app, opts.wait); err != nil {
		log.Warn("broker not reachable yet, continuing", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if err := serveMetrics(gctx, g, cfg, log, app, reg); err != nil {
		return err
	}

	lines := readLines(gctx, in)
	g.Go(func() error {
		// Reaching EOF ends the run and stops the metrics server.
		defer cancel()
		return publishLines(gctx, app, log, lines, opts)
	})

	status.Info("pipe started", "topic", app.Topic())
	err = g.Wait()
	status.Info("pipe stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newRegistry returns the registry served on /metrics, with runtime collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// serveMetrics starts the health and metrics server when enabled. The server
// closes once ctx ends.
func serveMetrics(ctx context.Context, g *errgroup.Group, cfg *config.Config, log *logging.Logger, app *appender.Appender, reg *prometheus.Registry) error {
	if !cfg.Metrics.Enabled {
		return nil
	}

	srv, err := api.New(api.Deps{
		Config:   cfg.Metrics,
		Logger:   log,
		Health:   app,
		Gatherer: reg,
		Version:  version,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		return srv.Close()
	})
	return nil
}

type lineResult struct {
	text string
	err  error
}

// readLines scans in on its own goroutine. A blocked Read cannot be
// interrupted, so the goroutine is abandoned rather than joined when ctx
// ends first.
func readLines(ctx context.Context, in io.Reader) <-chan lineResult {
	out := make(chan lineResult)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			select {
			case out <- lineResult{text: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case out <- lineResult{err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out
}

func publishLines(ctx context.Context, app *appender.Appender, log *logging.Logger, lines <-chan lineResult, opts pipeOptions) error {
	var published, failed int
	defer func() {
		log.Info("pipe totals", "published", published, "failed", failed)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line.err != nil {
				return line.err
			}
			if line.text == "" {
				continue
			}

			rec := &record.Record{
				Time:    time.Now(),
				Level:   opts.level,
				Message: line.text,
				Target:  opts.target,
			}
			if err := app.Append(ctx, rec); err != nil {
				failed++
				log.Warn("line not published", "error", err)
				continue
			}
			published++
		}
	}
}
