package workerpool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
type MetricsPool struct {
	pool     Pool
	name     string
	registry atomic.Pointer[metrics.Registry]
}

var _ metrics.Instrumentable = (*MetricsPool)(nil)

// NewWithMetrics creates a new worker pool with metrics recorded on a
// dedicated Prometheus registry.
func NewWithMetrics(workerCount int, name string) *MetricsPool {
	return NewWithConfigAndMetrics(Config{
		WorkerCount: workerCount,
		Name:        name,
	}, name, metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	})
}

// NewWithConfigAndMetrics creates a new worker pool with custom config and metrics.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) *MetricsPool {
	if config.Name == "" {
		config.Name = name
	}
	return Instrument(NewWithConfig(config), name, metricsConfig)
}

// Instrument decorates an existing pool. Tasks submitted through the returned
// pool record duration, queue wait and failure metrics labelled with name.
func Instrument(pool Pool, name string, metricsConfig metrics.Config) *MetricsPool {
	mp := &MetricsPool{
		pool: pool,
		name: name,
	}
	_ = mp.EnableMetrics(metricsConfig)
	return mp
}

// updateMetrics updates the current state metrics.
func (mp *MetricsPool) updateMetrics() {
	reg := mp.registry.Load()
	if reg == nil {
		return
	}

	reg.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	reg.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(mp.pool.ActiveWorkers()))
	reg.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.QueueSize()))
}

// Submit adds a task to the pool for execution.
func (mp *MetricsPool) Submit(task Task) error {
	return mp.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task with a timeout for queuing.
func (mp *MetricsPool) SubmitWithTimeout(ctx context.Context, task Task, timeout time.Duration) error {
	err := mp.pool.SubmitWithTimeout(ctx, mp.wrap(task), timeout)
	mp.updateMetrics()
	return err
}

// SubmitWithContext submits a task with a context for cancellation.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, task Task) error {
	err := mp.pool.SubmitWithContext(ctx, mp.wrap(task))
	mp.updateMetrics()
	return err
}

func (mp *MetricsPool) wrap(task Task) Task {
	if task == nil {
		return nil
	}
	return &metricsTask{
		original:   task,
		pool:       mp,
		submitTime: time.Now(),
	}
}

// metricsTask wraps a Task to collect execution metrics.
type metricsTask struct {
	original   Task
	pool       *MetricsPool
	submitTime time.Time
}

// Execute runs the original task and records metrics.
func (mt *metricsTask) Execute(ctx context.Context) error {
	start := time.Now()

	if reg := mt.pool.registry.Load(); reg != nil {
		reg.PoolTaskQueueWait.WithLabelValues(mt.pool.name).Observe(start.Sub(mt.submitTime).Seconds())
	}

	err := mt.original.Execute(ctx)

	if reg := mt.pool.registry.Load(); reg != nil {
		reg.PoolTaskDuration.WithLabelValues(mt.pool.name).Observe(time.Since(start).Seconds())
		reg.PoolTasksExecuted.WithLabelValues(mt.pool.name).Inc()
		if err != nil {
			reg.PoolTasksFailed.WithLabelValues(mt.pool.name).Inc()
		}
		mt.pool.updateMetrics()
	}

	return err
}

// Shutdown initiates graceful shutdown of the pool.
func (mp *MetricsPool) Shutdown() <-chan struct{} {
	return mp.pool.Shutdown()
}

// ShutdownWithTimeout shuts down the pool with a timeout.
func (mp *MetricsPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	return mp.pool.ShutdownWithTimeout(timeout)
}

// Size returns the current number of workers.
func (mp *MetricsPool) Size() int {
	return mp.pool.Size()
}

// QueueSize returns the current number of queued tasks.
func (mp *MetricsPool) QueueSize() int {
	return mp.pool.QueueSize()
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (mp *MetricsPool) ActiveWorkers() int {
	return mp.pool.ActiveWorkers()
}

// TotalSubmitted returns the total number of tasks submitted.
func (mp *MetricsPool) TotalSubmitted() int64 {
	return mp.pool.TotalSubmitted()
}

// TotalCompleted returns the total number of tasks completed.
func (mp *MetricsPool) TotalCompleted() int64 {
	return mp.pool.TotalCompleted()
}

// EnableMetrics enables metrics collection.
func (mp *MetricsPool) EnableMetrics(config metrics.Config) error {
	mp.registry.Store(config.Select())
	mp.updateMetrics()
	return nil
}

// DisableMetrics disables metrics collection.
func (mp *MetricsPool) DisableMetrics() {
	mp.registry.Store(nil)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mp *MetricsPool) MetricsEnabled() bool {
	return mp.registry.Load() != nil
}

// Registry returns the registry metrics are recorded on, or nil when disabled.
func (mp *MetricsPool) Registry() *metrics.Registry {
	return mp.registry.Load()
}
