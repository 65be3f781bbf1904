// Package metrics provides Prometheus instrumentation for taskflow components.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for taskflow components.
type Registry struct {
	// Resolve Metrics
	ResolveRuns           *prometheus.CounterVec
	WorkersSpawned        *prometheus.CounterVec
	TasksResolved         *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec
	BackpressureEvents    *prometheus.CounterVec
	Abandonments          *prometheus.CounterVec

	// Worker Pool Metrics
	WorkerPoolSize    *prometheus.GaugeVec
	WorkerPoolActive  *prometheus.GaugeVec
	WorkerPoolQueued  *prometheus.GaugeVec
	PoolTasksExecuted *prometheus.CounterVec
	PoolTasksFailed   *prometheus.CounterVec
	PoolTaskDuration  *prometheus.HistogramVec
	PoolTaskQueueWait *prometheus.HistogramVec

	// Executor Metrics
	ExecutorInitializations *prometheus.CounterVec
	ExecutorShutdowns       *prometheus.CounterVec
	OffloadedTasks          *prometheus.CounterVec

	// Bridge Metrics
	BridgeRuns *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by taskflow components.
var DefaultRegistry *Registry

var (
	registriesMu sync.Mutex
	registries   = make(map[prometheus.Registerer]*Registry)
)

func init() {
	DefaultRegistry = For(prometheus.DefaultRegisterer)
}

// For returns the Registry bound to reg, creating and registering the metric
// families on first use. Repeated calls with the same registerer return the
// same Registry instead of failing on duplicate registration.
func For(reg prometheus.Registerer) *Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	registriesMu.Lock()
	defer registriesMu.Unlock()
	if r, ok := registries[reg]; ok {
		return r
	}
	r := newRegistry(reg, defaultNamespace)
	registries[reg] = r
	return r
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
// It panics if the metric families are already registered with reg; use For to
// share a registry between components.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, defaultNamespace)
}

func newRegistry(reg prometheus.Registerer, namespace string) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Resolve Metrics
		ResolveRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolve",
				Name:      "runs_total",
				Help:      "Total number of started resolve runs",
			},
			[]string{"resolver_name"},
		),

		WorkersSpawned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolve",
				Name:      "workers_spawned_total",
				Help:      "Total number of resolve workers spawned",
			},
			[]string{"resolver_name"},
		),

		TasksResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolve",
				Name:      "tasks_resolved_total",
				Help:      "Total number of tasks that completed without error",
			},
			[]string{"resolver_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolve",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that completed with an error",
			},
			[]string{"resolver_name"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "resolve",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resolver_name"},
		),

		BackpressureEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolve",
				Name:      "backpressure_events_total",
				Help:      "Total number of times a worker blocked on its full result queue",
			},
			[]string{"resolver_name"},
		),

		Abandonments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolve",
				Name:      "abandoned_total",
				Help:      "Total number of runs closed before every result was consumed",
			},
			[]string{"resolver_name"},
		),

		// Worker Pool Metrics
		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Current worker pool size",
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "active_workers",
				Help:      "Number of active workers",
			},
			[]string{"pool_name"},
		),

		WorkerPoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "queued_tasks",
				Help:      "Number of queued tasks",
			},
			[]string{"pool_name"},
		),

		PoolTasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "tasks_executed_total",
				Help:      "Total number of tasks executed by the pool",
			},
			[]string{"pool_name"},
		),

		PoolTasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "tasks_failed_total",
				Help:      "Total number of pool tasks that returned an error",
			},
			[]string{"pool_name"},
		),

		PoolTaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing pool tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		PoolTaskQueueWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "queue_wait_seconds",
				Help:      "Time pool tasks spent queued before execution",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		// Executor Metrics
		ExecutorInitializations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "executor",
				Name:      "initializations_total",
				Help:      "Total number of executor pool (re)initializations",
			},
			[]string{"executor_kind"},
		),

		ExecutorShutdowns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "executor",
				Name:      "shutdowns_total",
				Help:      "Total number of executor pool teardowns",
			},
			[]string{"executor_kind"},
		),

		OffloadedTasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "executor",
				Name:      "offloaded_total",
				Help:      "Total number of functions submitted to an executor pool",
			},
			[]string{"executor_kind"},
		),

		// Bridge Metrics
		BridgeRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "runs_total",
				Help:      "Total number of entrypoints run through the sync bridge",
			},
			[]string{"entrypoint"},
		),
	}
}
