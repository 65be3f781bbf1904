package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
)

// Submit adds a task to the pool for execution.
// The task will be executed with context.Background().
// Use SubmitWithContext to provide a custom context.
func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task, giving up if it cannot be queued within timeout.
func (p *workerPool) SubmitWithTimeout(ctx context.Context, task Task, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	queueCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// the timeout bounds queuing only, not execution
	err := p.submit(queueCtx, ctx, task)
	if err != nil && ctx.Err() != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("cannot submit task within %v: %w: %w", timeout, tferrors.ErrTimeout, context.DeadlineExceeded)
	}
	return err
}

// SubmitWithContext adds a task to the pool for execution with the given context.
// The context bounds queuing and is passed to the task's Execute method. If
// the pool has a TaskTimeout configured, the effective timeout is the minimum
// of the context deadline and TaskTimeout.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.submit(ctx, ctx, task)
}

func (p *workerPool) submit(queueCtx, taskCtx context.Context, task Task) error {
	if err := validation.ValidateNotNil(module, "task", task); err != nil {
		return err
	}

	// Check if context is already canceled before attempting to queue
	select {
	case <-queueCtx.Done():
		return fmt.Errorf("cannot submit task: context canceled: %w", queueCtx.Err())
	default:
	}

	// Registering as a sender under the read lock orders this call against
	// Shutdown; draining workers keep receiving until every sender is gone.
	p.mu.RLock()
	if p.isShutdown {
		p.mu.RUnlock()
		return fmt.Errorf("cannot submit task: worker pool has been shut down: %w", tferrors.ErrClosed)
	}
	p.senders.Add(1)
	p.mu.RUnlock()
	defer p.senders.Done()

	twc := taskWithContext{
		task:      task,
		ctx:       taskCtx,
		submitted: time.Now(),
	}

	select {
	case p.taskQueue <- twc:
		p.totalSubmitted.Add(1)
		return nil
	case <-p.shutdownCh:
		return fmt.Errorf("cannot submit task: worker pool has been shut down: %w", tferrors.ErrClosed)
	case <-queueCtx.Done():
		return fmt.Errorf("cannot submit task: context canceled: %w", queueCtx.Err())
	}
}

// Shutdown initiates a graceful shutdown of the pool.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		close(p.shutdownCh)
		p.mu.Unlock()

		go func() {
			p.senders.Wait()
			close(p.sendersDone)
		}()

		p.logger.Debug().Int("queued", len(p.taskQueue)).Msg("worker pool shutting down")
	})

	return p.done
}

// ShutdownWithTimeout shuts down the pool and cancels the context of running
// and queued tasks if they have not finished within timeout.
func (p *workerPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	done := p.Shutdown()

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			p.logger.Debug().Dur("timeout", timeout).Msg("shutdown timed out, cancelling tasks")
			p.abort()
		}
	}()

	return done
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return len(p.taskQueue)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(p.activeWorkers.Load())
}

// TotalSubmitted returns the total number of tasks submitted to the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return p.totalSubmitted.Load()
}

// TotalCompleted returns the total number of tasks completed by the pool.
func (p *workerPool) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}

// run is the main loop for a worker.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	if w.pool.config.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id)
	}
	if w.pool.config.OnWorkerStop != nil {
		defer w.pool.config.OnWorkerStop(w.id)
	}

	for {
		select {
		case twc := <-w.pool.taskQueue:
			w.executeTask(twc)
		case <-w.pool.shutdownCh:
			w.drain()
			return
		}
	}
}

// drain executes whatever is left in the queue after shutdown, including
// tasks handed over by submitters that were already blocked on the send.
func (w *worker) drain() {
	for {
		select {
		case twc := <-w.pool.taskQueue:
			w.executeTask(twc)
		case <-w.pool.sendersDone:
			for {
				select {
				case twc := <-w.pool.taskQueue:
					w.executeTask(twc)
				default:
					return
				}
			}
		}
	}
}

// executeTask executes a single task with the provided context.
func (w *worker) executeTask(twc taskWithContext) {
	start := time.Now()
	var err error

	w.pool.activeWorkers.Add(1)
	if w.pool.config.OnTaskStart != nil {
		w.pool.config.OnTaskStart(w.id, twc.task)
	}

	// Handle panics during task execution
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
		}

		w.pool.activeWorkers.Add(-1)
		w.pool.totalCompleted.Add(1)

		if w.pool.config.OnTaskComplete != nil {
			w.pool.config.OnTaskComplete(w.id, Result{
				Task:     twc.task,
				Error:    err,
				Duration: time.Since(start),
				WorkerID: w.id,
			})
		}
	}()

	ctx, cancel := context.WithCancel(twc.ctx)
	defer cancel()
	stop := context.AfterFunc(w.pool.abortCtx, cancel)
	defer stop()

	// Apply TaskTimeout if configured
	// The effective timeout is the minimum of the context deadline and TaskTimeout
	if w.pool.config.TaskTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, w.pool.config.TaskTimeout)
		defer cancelTimeout()
	}

	err = twc.task.Execute(ctx)
}
