package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ygrebnov/errorc"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/scheduling/task"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

// Submit queues fn on p and returns a handle resolved with its outcome. It
// blocks only while the queue of p is full, bounded by ctx and
// Options.SubmitTimeout. fn receives ctx.
// Panics raised by fn resolve the handle with an error wrapping
// task.ErrTaskPanicked.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (*task.Handle[T], error) {
	if fn == nil {
		return nil, errors.New("executor: nil function")
	}

	h, resolve := task.NewPromise[T]()
	job := workerpool.TaskFunc(func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", task.ErrTaskPanicked, r)
				var zero T
				resolve(zero, err)
			}
		}()
		v, err := fn(ctx)
		resolve(v, err)
		return err
	})

	wp, err := p.Pool()
	for err == nil {
		if p.opts.SubmitTimeout > 0 {
			err = wp.SubmitWithTimeout(ctx, job, p.opts.SubmitTimeout)
		} else {
			err = wp.SubmitWithContext(ctx, job)
		}
		if !errors.Is(err, tferrors.ErrClosed) {
			break
		}
		// the pool was replaced between lookup and submission
		var next workerpool.Pool
		if next, err = p.Pool(); err == nil && next == wp {
			err = errorc.With(tferrors.ErrClosed, errorc.String("executor", p.kind.String()))
		}
		wp = next
	}
	if err != nil {
		return nil, err
	}

	if p.registry != nil {
		p.registry.OffloadedTasks.WithLabelValues(p.kind.String()).Inc()
	}
	return h, nil
}

// Offload runs fn on the pool of the given kind carried by ctx, initializing
// it with its default size on first use, and waits for the outcome. Only the
// calling goroutine waits; cancelling ctx abandons the wait and fn observes
// the cancellation through its own context.
func Offload[T any](ctx context.Context, kind Kind, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	p := PoolsFrom(ctx).Get(kind)
	if _, err := p.EnsureInitialized(0); err != nil {
		return zero, tferrors.NewOperationError(module, "offload", err).WithContext(kind.String())
	}

	h, err := Submit(ctx, p, fn)
	if err != nil {
		return zero, tferrors.NewOperationError(module, "offload", err).WithContext(kind.String())
	}
	return h.Wait(ctx)
}

// Unblock runs a blocking function on the thread-backed pool.
func Unblock[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return Offload(ctx, Thread, fn)
}

// UnblockCPU runs a CPU-bound function on the CPU-backed pool.
func UnblockCPU[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return Offload(ctx, CPU, fn)
}
