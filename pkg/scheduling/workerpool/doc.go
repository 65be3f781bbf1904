/*
Package workerpool provides a fixed-size goroutine pool with a bounded task queue.

It is the execution primitive behind the executor package: thread-backed
executors configure LockOSThread so every worker owns an OS thread, CPU-backed
executors size the pool to the number of CPUs.

Basic usage:

	pool := workerpool.New(4, 100) // 4 workers, queue size 100
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.Submit(task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

Outcomes:

The pool does not buffer results. Callers that need the outcome of a task either
capture it in the task closure or observe every completion through
Config.OnTaskComplete:

	pool := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: 8,
		QueueSize:   64,
		OnTaskComplete: func(workerID int, result workerpool.Result) {
			if result.Error != nil {
				log.Printf("worker %d: %v", workerID, result.Error)
			}
		},
	})

Panics raised by a task are recovered and reported as the task's error, with the
stack trace attached.

Queue Configurations:

	// Bounded queue
	pool := workerpool.New(4, 100)

	// Direct hand-off, Submit blocks until a worker is idle
	pool := workerpool.New(4, 0)

Shutdown:

Shutdown stops intake and lets the workers drain whatever is already queued.
The returned channel closes once every worker has exited.

	<-pool.Shutdown()

	// cancel the context of tasks still running after 30s
	<-pool.ShutdownWithTimeout(30 * time.Second)

Submissions racing with Shutdown either land in the queue before it is closed
for intake, and are executed, or fail with an error wrapping errors.ErrClosed.
Shutdown never waits for a submitter blocked on a full queue; that submitter
is released with errors.ErrClosed.

Thread Safety:

All pool operations are safe for concurrent use from multiple goroutines.
*/
package workerpool
