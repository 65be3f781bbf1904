package executor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/ygrebnov/errorc"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

// Options configures a Pool.
type Options struct {
	// QueueSize bounds the number of submitted functions waiting for a worker.
	// Zero selects four slots per worker.
	QueueSize int

	// SubmitTimeout bounds how long Submit waits for a queue slot. Zero
	// waits as long as the caller's context allows.
	SubmitTimeout time.Duration

	// TaskTimeout bounds the execution of each submitted function through
	// its context. Zero leaves execution unbounded.
	TaskTimeout time.Duration

	// ShutdownTimeout cancels the context of functions still running this
	// long after a waiting Shutdown or Close. Zero waits indefinitely.
	ShutdownTimeout time.Duration

	// Logger receives initialize and shutdown events. Nil disables logging.
	Logger *zerolog.Logger

	// Metrics selects the Prometheus registry. Disabled by default.
	Metrics metrics.Config
}

// Pool is a lazily initialized, replaceable execution resource. All state
// transitions are serialized, so Initialize, Shutdown and the accessors can
// be called concurrently.
type Pool struct {
	kind     Kind
	opts     Options
	logger   zerolog.Logger
	registry *metrics.Registry

	mu      sync.Mutex
	pool    workerpool.Pool
	workers int
	closed  bool
}

// NewPool creates an uninitialized pool of the given kind.
func NewPool(kind Kind, opts Options) *Pool {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("executor", kind.String()).Logger()
	}
	return &Pool{
		kind:     kind,
		opts:     opts,
		logger:   logger,
		registry: opts.Metrics.Select(),
	}
}

// Kind returns the kind of execution resource.
func (p *Pool) Kind() Kind { return p.kind }

// Initialize installs a fresh pool with maxWorkers workers. A previously
// installed pool is shut down without waiting: functions already submitted
// to it keep running to completion. maxWorkers <= 0 selects Kind.DefaultWorkers.
// It fails with errors.ErrClosed after Close.
func (p *Pool) Initialize(maxWorkers int) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.closedError()
	}
	old, oldWorkers := p.pool, p.workers
	p.initializeLocked(maxWorkers)
	p.mu.Unlock()

	if old != nil {
		old.Shutdown()
		p.logger.Debug().Int("workers", oldWorkers).Msg("replaced executor pool without waiting")
	}
	return nil
}

// EnsureInitialized initializes the pool unless one is already installed and
// returns the installed pool.
func (p *Pool) EnsureInitialized(maxWorkers int) (workerpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, p.closedError()
	}
	if p.pool == nil {
		p.initializeLocked(maxWorkers)
	}
	return p.pool, nil
}

func (p *Pool) closedError() error {
	return errorc.With(tferrors.ErrClosed, errorc.String("executor", p.kind.String()))
}

func (p *Pool) initializeLocked(maxWorkers int) {
	if maxWorkers <= 0 {
		maxWorkers = p.kind.DefaultWorkers()
	}

	queue := p.opts.QueueSize
	if queue <= 0 {
		queue = 4 * maxWorkers
	}

	name := "executor_" + p.kind.String()
	logger := p.logger
	var pool workerpool.Pool = workerpool.NewWithConfig(workerpool.Config{
		WorkerCount:  maxWorkers,
		QueueSize:    queue,
		TaskTimeout:  p.opts.TaskTimeout,
		LockOSThread: p.kind == Thread,
		Name:         name,
		Logger:       p.opts.Logger,
		OnWorkerStart: func(id int) {
			logger.Trace().Int("worker", id).Msg("executor worker started")
		},
		OnWorkerStop: func(id int) {
			logger.Trace().Int("worker", id).Msg("executor worker stopped")
		},
		OnTaskStart: func(id int, _ workerpool.Task) {
			logger.Trace().Int("worker", id).Msg("offloaded function started")
		},
		OnTaskComplete: func(id int, res workerpool.Result) {
			if res.Error != nil {
				logger.Debug().Err(res.Error).Int("worker", id).Dur("took", res.Duration).Msg("offloaded function failed")
			}
		},
	})
	if p.registry != nil {
		pool = workerpool.Instrument(pool, name, p.opts.Metrics)
		p.registry.ExecutorInitializations.WithLabelValues(p.kind.String()).Inc()
	}

	p.pool = pool
	p.workers = maxWorkers
	p.logger.Info().Int("workers", maxWorkers).Int("queue", queue).Msg("executor pool initialized")
}

// Shutdown tears down the installed pool. With wait it blocks until every
// submitted function has finished. Afterwards the pool is uninitialized and
// may be initialized again. Shutting down an uninitialized pool is a no-op.
func (p *Pool) Shutdown(wait bool) {
	p.shutdown(wait, false)
}

// Close shuts the pool down, waiting for submitted functions, and prevents
// any further initialization.
func (p *Pool) Close() {
	p.shutdown(true, true)
}

func (p *Pool) shutdown(wait, final bool) {
	p.mu.Lock()
	pool := p.pool
	p.pool, p.workers = nil, 0
	if final {
		p.closed = true
	}
	p.mu.Unlock()

	if pool == nil {
		return
	}

	start := time.Now()
	var done <-chan struct{}
	if wait && p.opts.ShutdownTimeout > 0 {
		done = pool.ShutdownWithTimeout(p.opts.ShutdownTimeout)
	} else {
		done = pool.Shutdown()
	}
	if wait {
		<-done
	}

	if p.registry != nil {
		p.registry.ExecutorShutdowns.WithLabelValues(p.kind.String()).Inc()
	}
	p.logger.Info().Bool("wait", wait).Dur("took", time.Since(start)).Msg("executor pool shut down")
}

// Pool returns the installed pool. Before Initialize, or after Shutdown, it
// fails with an error wrapping errors.ErrNotInitialized.
func (p *Pool) Pool() (workerpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil {
		if p.closed {
			return nil, p.closedError()
		}
		return nil, errorc.With(tferrors.ErrNotInitialized, errorc.String("executor", p.kind.String()))
	}
	return p.pool, nil
}

// Initialized reports whether a pool is currently installed.
func (p *Pool) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool != nil
}

// Size returns the number of workers of the installed pool, or 0.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}
