/*
Package scheduling provides task scheduling and execution primitives for Go applications.

This package groups the components that run deferred computations:

  - task: Typed deferred computations and their completion handles
  - resolve: Bounded-concurrency, input-ordered resolution of task sequences
  - workerpool: Fixed worker pool for concurrent task execution
  - executor: Replaceable thread- and CPU-backed pools for offloading
  - bridge: Synchronous entrypoint runner for main functions

Resolve:

Resolve runs at most Workers tasks at a time and hands results back in input
order, whatever order they complete in:

	values, err := resolve.Collect(ctx, tasks, 8, 0)

Lazy consumption goes through a two-phase Resolver:

	r, err := resolve.New(ctx, tasks, 8, 1)
	for a := range r.Accessors() {
		v, err := a.Get(ctx)
		...
	}

Offloading:

Blocking and CPU-bound functions run on executor pools carried by the context:

	data, err := executor.Unblock(ctx, func(ctx context.Context) ([]byte, error) {
		return os.ReadFile(path)
	})

Bridge:

	result, err := bridge.Block(run)

Error Handling:

Argument errors are returned synchronously by constructors. Errors of a task
are captured with its result and surface only when that position is read,
wrapped in a resolve.PositionError.

Thread Safety:

All types are safe for concurrent use unless their documentation says otherwise.
*/
package scheduling
