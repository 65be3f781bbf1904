/*
Package taskflow provides bounded-concurrency scheduling of deferred computations.

Scheduling (pkg/scheduling):
  - task: Typed deferred computations with completion handles
  - resolve: Ordered, lazily consumed results with per-worker backpressure
  - workerpool: Fixed goroutine pool with bounded queue
  - executor: Thread- and CPU-backed offload pools
  - bridge: Run a context-driven entrypoint from synchronous code

Observability (pkg/metrics):
  - Prometheus metrics for every component

Example usage:

	import (
		"github.com/vnykmshr/taskflow/pkg/scheduling/bridge"
		"github.com/vnykmshr/taskflow/pkg/scheduling/resolve"
	)

	values, err := bridge.Block(func(ctx context.Context) ([]int, error) {
		return resolve.Collect(ctx, tasks, 4, 0)
	})
*/
package taskflow
