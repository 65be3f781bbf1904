package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	// ErrPending is returned by Handle.Result before the computation has finished.
	ErrPending = errors.New("task: result is not ready")

	// ErrTaskPanicked wraps the value recovered from a panicking computation.
	ErrTaskPanicked = errors.New("task: computation panicked")
)

// Task is a deferred computation producing a value of type T.
// It should respect ctx cancellation and return any error encountered.
type Task[T any] func(ctx context.Context) (T, error)

// Func adapts fn to a Task.
func Func[T any](fn func(ctx context.Context) (T, error)) Task[T] { return Task[T](fn) }

// Value adapts a computation that cannot fail.
func Value[T any](fn func(ctx context.Context) T) Task[T] {
	return func(ctx context.Context) (T, error) { return fn(ctx), nil }
}

// Err adapts a computation that only reports an error.
func Err[T any](fn func(ctx context.Context) error) Task[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		return zero, fn(ctx)
	}
}

// Return returns a Task that immediately yields v.
func Return[T any](v T) Task[T] {
	return func(context.Context) (T, error) { return v, nil }
}

// Handle is the completion handle of a scheduled computation. It resolves the
// instant the computation finishes, whether or not anybody waits on it.
type Handle[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	value     T
	err       error
	completed bool
	listeners []func(T, error)
}

func newHandle[T any]() *Handle[T] {
	return &Handle[T]{done: make(chan struct{})}
}

// Schedule starts t on its own goroutine and returns immediately. Errors and
// panics raised by t are captured in the handle and only surface from Result
// or Wait.
func Schedule[T any](ctx context.Context, t Task[T]) *Handle[T] {
	h := newHandle[T]()
	if t == nil {
		var zero T
		h.complete(zero, errors.New("task: nil task"))
		return h
	}
	go func() {
		var (
			value T
			err   error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v\nStack trace:\n%s", ErrTaskPanicked, r, debug.Stack())
			}
			h.complete(value, err)
		}()
		value, err = t(ctx)
	}()
	return h
}

// NewPromise returns an unresolved handle together with the function that
// resolves it. Only the first call of resolve has an effect.
func NewPromise[T any]() (*Handle[T], func(T, error)) {
	h := newHandle[T]()
	return h, h.complete
}

func (h *Handle[T]) complete(value T, err error) {
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		return
	}
	h.value, h.err, h.completed = value, err, true
	listeners := h.listeners
	h.listeners = nil
	close(h.done)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(value, err)
	}
}

// Done returns a channel that is closed once the computation has finished.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Result returns the outcome without blocking. Before completion it returns
// ErrPending.
func (h *Handle[T]) Result() (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.completed {
		var zero T
		return zero, ErrPending
	}
	return h.value, h.err
}

// Wait blocks until the computation finishes or ctx is done.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete registers fn to be called once with the outcome. If the handle is
// already complete fn is called synchronously.
func (h *Handle[T]) OnComplete(fn func(T, error)) {
	h.mu.Lock()
	if !h.completed {
		h.listeners = append(h.listeners, fn)
		h.mu.Unlock()
		return
	}
	value, err := h.value, h.err
	h.mu.Unlock()
	fn(value, err)
}
