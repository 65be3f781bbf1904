// Package metrics provides Prometheus instrumentation for taskflow components.
//
// Metrics are off by default. Components take a Config and record on the
// Registry bound to its Prometheus registerer:
//
//	cfg := metrics.Config{Enabled: true, Registry: prometheus.NewRegistry()}
//
//	rcfg := resolve.DefaultConfig()
//	rcfg.Metrics = cfg
//
//	pool := workerpool.NewWithConfigAndMetrics(workerpool.Config{WorkerCount: 4}, "jobs", cfg)
//
// Several components may share one registerer: For returns the same Registry
// for the same registerer instead of registering the families twice.
//
// # Available Metrics
//
// ## Resolve Metrics (label resolver_name)
//
//   - taskflow_resolve_runs_total: Total number of started resolve runs
//   - taskflow_resolve_workers_spawned_total: Total number of resolve workers spawned
//   - taskflow_resolve_tasks_resolved_total: Tasks that completed without error
//   - taskflow_resolve_tasks_failed_total: Tasks that completed with an error
//   - taskflow_resolve_task_duration_seconds: Time spent executing tasks
//   - taskflow_resolve_backpressure_events_total: Pushes into a full worker queue
//   - taskflow_resolve_abandoned_total: Runs closed before every result was consumed
//
// ## Worker Pool Metrics (label pool_name)
//
//   - taskflow_workerpool_size: Current worker pool size
//   - taskflow_workerpool_active_workers: Number of active workers
//   - taskflow_workerpool_queued_tasks: Number of queued tasks
//   - taskflow_workerpool_tasks_executed_total: Tasks executed by the pool
//   - taskflow_workerpool_tasks_failed_total: Pool tasks that returned an error
//   - taskflow_workerpool_task_duration_seconds: Time spent executing pool tasks
//   - taskflow_workerpool_queue_wait_seconds: Time pool tasks spent queued
//
// ## Executor Metrics (label executor_kind)
//
//   - taskflow_executor_initializations_total: Pool (re)initializations
//   - taskflow_executor_shutdowns_total: Pool teardowns
//   - taskflow_executor_offloaded_total: Functions submitted to an executor pool
//
// ## Bridge Metrics (label entrypoint)
//
//   - taskflow_bridge_runs_total: Entrypoints run through the sync bridge
//
// # Runtime Control
//
// Components implementing Instrumentable can be switched at runtime:
//
//	pool.DisableMetrics()
//	pool.EnableMetrics(cfg)
package metrics
