package resolve

import (
	"github.com/rs/zerolog"

	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

const (
	// DefaultWorkers is the worker count used when none is configured.
	DefaultWorkers = 1024

	// DefaultWorkerGreediness is the default per-worker look-ahead.
	DefaultWorkerGreediness = 0

	module = "resolve"
)

// Config holds configuration options for a resolve run.
type Config struct {
	// Workers is the maximum number of tasks executed concurrently.
	// Must be >= 1. When the task count is known it is capped to that count.
	Workers int

	// WorkerGreediness is how many completed results a worker may hold beyond
	// the one currently awaited by the consumer before it stops executing.
	// Must be >= 0.
	WorkerGreediness int

	// Name labels log events and metrics of this run.
	Name string

	// Logger receives debug events about workers. Nil disables logging.
	Logger *zerolog.Logger

	// Metrics selects the Prometheus registry. Disabled by default.
	Metrics metrics.Config
}

// DefaultConfig returns the configuration used by New and Collect.
func DefaultConfig() Config {
	return Config{
		Workers:          DefaultWorkers,
		WorkerGreediness: DefaultWorkerGreediness,
		Name:             "default",
	}
}

func (c Config) validate() error {
	if err := validation.ValidatePositive(module, "workers", c.Workers); err != nil {
		return err
	}
	return validation.ValidateNonNegative(module, "worker_greediness", c.WorkerGreediness)
}

func (c Config) logger() zerolog.Logger {
	if c.Logger == nil {
		return zerolog.Nop()
	}
	return c.Logger.With().Str("resolver", c.Name).Logger()
}
