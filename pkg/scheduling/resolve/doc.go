/*
Package resolve runs an ordered sequence of tasks concurrently on a bounded
number of workers and hands the results back in input order.

Basic usage:

	tasks := []task.Task[string]{fetch("a"), fetch("b"), fetch("c")}

	pages, err := resolve.Collect(ctx, tasks, 2, 0) // 2 workers, no look-ahead
	if err != nil {
		log.Printf("fetch failed: %v", err)
	}

Collect fails fast: it returns at the first failing position, in input order,
with the values resolved before it.

Lazy consumption:

A Resolver exposes one accessor per input position. Construction is cheap
and starts nothing; the first Get (or an explicit Start) spawns the workers.

	r, err := resolve.New(ctx, tasks, 8, 1)
	if err != nil {
		return err // invalid workers or greediness
	}
	for a := range r.Accessors() {
		v, err := a.Get(ctx)
		if err != nil {
			idx, _ := resolve.IndexOf(err)
			log.Printf("task %d failed: %v", idx, err)
			continue
		}
		use(v)
	}

Or, for the common in-order loop:

	for v, err := range r.All(ctx) {
		...
	}

Workers and greediness:

At most Workers tasks execute at once; when the number of tasks is known the
worker count is capped to it. Each worker owns a queue of capacity
WorkerGreediness+1. A worker that has filled its queue with results nobody
asked for yet stops executing until the consumer catches up, which bounds how
far the run may get ahead of a slow consumer.

Ordering:

Results are delivered strictly in input order regardless of the order in
which workers finish. A failing task does not stop other workers; its error
surfaces only from the accessor of its own position, wrapped in a
*PositionError.

Abandonment:

Breaking out of Accessors or All, a failing Collect, Close, or cancelling the
context given at construction cancels the run: workers stop claiming new
tasks and running tasks see a cancelled context.
*/
package resolve
