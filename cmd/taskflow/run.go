package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/bridge"
	"github.com/vnykmshr/taskflow/pkg/scheduling/executor"
	"github.com/vnykmshr/taskflow/pkg/scheduling/resolve"
	"github.com/vnykmshr/taskflow/pkg/scheduling/task"
)

type runOptions struct {
	tasks       int
	workers     int
	greediness  int
	delay       time.Duration
	jitter      time.Duration
	failAt      int
	offload     string
	metricsAddr string
	logLevel    string
}

var errSynthetic = errors.New("synthetic failure")

func newRunCmd() *cobra.Command {
	opts := runOptions{failAt: -1}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve a batch of synthetic tasks and print the results in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkload(cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.tasks, "tasks", 16, "number of tasks")
	flags.IntVar(&opts.workers, "workers", resolve.DefaultWorkers, "maximum number of concurrently running tasks")
	flags.IntVar(&opts.greediness, "greediness", resolve.DefaultWorkerGreediness, "results a worker may hold beyond the awaited one")
	flags.DurationVar(&opts.delay, "delay", 10*time.Millisecond, "base duration of every task")
	flags.DurationVar(&opts.jitter, "jitter", 20*time.Millisecond, "random extra duration added to every task")
	flags.IntVar(&opts.failAt, "fail-at", -1, "index of a task that fails, -1 for none")
	flags.StringVar(&opts.offload, "offload", "", "run task bodies on an executor pool: thread or cpu")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level")

	return cmd
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger(), nil
}

func offloadKind(name string) (executor.Kind, bool, error) {
	switch name {
	case "":
		return 0, false, nil
	case "thread":
		return executor.Thread, true, nil
	case "cpu":
		return executor.CPU, true, nil
	default:
		return 0, false, fmt.Errorf("unknown offload kind %q, want thread or cpu", name)
	}
}

// syntheticTasks builds tasks that sleep and return their own index.
func syntheticTasks(opts runOptions, kind executor.Kind, offload bool) []task.Task[int] {
	tasks := make([]task.Task[int], opts.tasks)
	for i := range tasks {
		d := opts.delay
		if opts.jitter > 0 {
			d += rand.N(opts.jitter)
		}
		body := func(ctx context.Context) (int, error) {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			if i == opts.failAt {
				return 0, fmt.Errorf("task %d: %w", i, errSynthetic)
			}
			return i, nil
		}
		if offload {
			tasks[i] = func(ctx context.Context) (int, error) {
				return executor.Offload(ctx, kind, body)
			}
			continue
		}
		tasks[i] = body
	}
	return tasks
}

func runWorkload(out io.Writer, opts runOptions) error {
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}
	kind, offload, err := offloadKind(opts.offload)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metricsCfg := metrics.Config{Enabled: true, Registry: reg}

	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		logger.Info().Str("addr", opts.metricsAddr).Msg("serving metrics")
	}

	cfg := resolve.Config{
		Workers:          opts.workers,
		WorkerGreediness: opts.greediness,
		Name:             "cli",
		Logger:           &logger,
		Metrics:          metricsCfg,
	}
	bridgeOpts := bridge.DefaultOptions()
	bridgeOpts.Logger = &logger
	bridgeOpts.Metrics = metricsCfg
	bridgeOpts.Executor = executor.Options{Logger: &logger, Metrics: metricsCfg}

	tasks := syntheticTasks(opts, kind, offload)

	_, err = bridge.Run(bridgeOpts, func(ctx context.Context) (resolve.Stats, error) {
		r, err := resolve.NewWithConfig(ctx, tasks, cfg)
		if err != nil {
			return resolve.Stats{}, err
		}
		defer r.Close()

		start := time.Now()
		position := 0
		for v, err := range r.All(ctx) {
			if err != nil {
				return r.Stats(), err
			}
			fmt.Fprintf(out, "%d\t%d\n", position, v)
			position++
		}

		stats := r.Stats()
		logger.Info().
			Int("tasks", position).
			Int("workers", stats.Spawned).
			Dur("took", time.Since(start)).
			Msg("workload resolved")
		return stats, nil
	})
	return err
}
