/*
Package task defines the deferred computation type used across taskflow and
the completion handle returned when one is started.

A Task is a plain function of a context:

	t := task.Func(func(ctx context.Context) (int, error) {
		return fetchCount(ctx)
	})

Schedule starts it on its own goroutine without blocking the caller:

	h := task.Schedule(ctx, t)
	// ... do other work ...
	n, err := h.Wait(ctx)

The handle resolves the moment the computation returns, independently of
whether anybody is waiting. Errors, including recovered panics, are kept in
the handle and are only observed through Result or Wait, never at schedule
time. OnComplete registers listeners that run once on completion.

NewPromise creates a handle that is resolved manually; the executor package
uses it to expose results of functions submitted to a worker pool.
*/
package task
