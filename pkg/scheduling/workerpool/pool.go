package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const module = "workerpool"

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is any error that occurred during task execution
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int
}

// Pool represents a worker pool that can execute tasks concurrently.
type Pool interface {
	// Submit adds a task to the pool for execution.
	// Returns an error if the pool is shut down or if the task cannot be queued.
	Submit(task Task) error

	// SubmitWithTimeout submits a task with a timeout for queuing.
	// If the task cannot be queued within the timeout, it returns an error.
	// ctx is passed to the task; the timeout does not bound execution.
	SubmitWithTimeout(ctx context.Context, task Task, timeout time.Duration) error

	// SubmitWithContext submits a task with a context for cancellation.
	// The context bounds the queuing operation and is passed to the task.
	SubmitWithContext(ctx context.Context, task Task) error

	// Shutdown stops accepting tasks. Tasks already queued still run.
	// Returns a channel that closes when every worker has exited.
	Shutdown() <-chan struct{}

	// ShutdownWithTimeout shuts down the pool with a timeout.
	// If shutdown doesn't complete within the timeout, remaining tasks are canceled.
	ShutdownWithTimeout(timeout time.Duration) <-chan struct{}

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks submitted to the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the maximum number of tasks that can be queued.
	// Zero means tasks are handed to an idle worker directly.
	QueueSize int

	// TaskTimeout is the default timeout for individual task execution.
	// Zero means no timeout.
	TaskTimeout time.Duration

	// LockOSThread pins every worker goroutine to its own OS thread for its
	// whole lifetime, so blocking calls made by tasks never share a thread.
	LockOSThread bool

	// Name labels log events of this pool.
	Name string

	// Logger receives lifecycle events. Nil disables logging.
	Logger *zerolog.Logger

	// OnWorkerStart is called when a worker starts.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(workerID int)

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, task Task)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)
}

// workerPool implements the Pool interface.
type workerPool struct {
	config Config
	logger zerolog.Logger

	// Core pool state
	workers      []worker
	taskQueue    chan taskWithContext
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	// senders counts submitters between the shutdown check and the send;
	// sendersDone is closed once none is left after Shutdown
	senders     sync.WaitGroup
	sendersDone chan struct{}

	// abort cancels the contexts of running tasks after a shutdown timeout
	abortCtx context.Context
	abort    context.CancelFunc

	// State tracking; mu orders Submit against Shutdown
	mu             sync.RWMutex
	isShutdown     bool
	activeWorkers  atomic.Int64
	totalSubmitted atomic.Int64
	totalCompleted atomic.Int64

	// Worker management
	workerWg sync.WaitGroup
}

// taskWithContext pairs a task with the context it was submitted with.
type taskWithContext struct {
	task      Task
	ctx       context.Context
	submitted time.Time
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	pool *workerPool
}

// New creates a new worker pool with the specified number of workers and queue size.
func New(workerCount, queueSize int) Pool {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a new worker pool with the specified configuration.
func NewWithConfig(config Config) Pool {
	if config.WorkerCount <= 0 {
		panic("worker count must be positive")
	}

	if config.QueueSize < 0 {
		panic("queue size must be >= 0")
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = config.Logger.With().Str("pool", config.Name).Logger()
	}

	abortCtx, abort := context.WithCancel(context.Background())
	pool := &workerPool{
		config:      config,
		logger:      logger,
		taskQueue:   make(chan taskWithContext, config.QueueSize),
		shutdownCh:  make(chan struct{}),
		sendersDone: make(chan struct{}),
		done:        make(chan struct{}),
		abortCtx:    abortCtx,
		abort:       abort,
	}

	// Create and start workers
	pool.workers = make([]worker, config.WorkerCount)
	for i := 0; i < config.WorkerCount; i++ {
		pool.workers[i] = worker{
			id:   i,
			pool: pool,
		}
		pool.workerWg.Add(1)
		go pool.workers[i].run()
	}

	go func() {
		pool.workerWg.Wait()
		abort()
		close(pool.done)
	}()

	logger.Debug().
		Int("workers", config.WorkerCount).
		Int("queue", config.QueueSize).
		Bool("lock_os_thread", config.LockOSThread).
		Msg("worker pool started")

	return pool
}
