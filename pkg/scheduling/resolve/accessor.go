package resolve

import (
	"context"
	"sync"
)

// Accessor gives access to the outcome of one position of a run.
type Accessor[T any] struct {
	index int
	r     *Resolver[T]

	mu    sync.Mutex
	done  bool
	value T
	err   error
}

// Index returns the position of the accessor in the input sequence.
func (a *Accessor[T]) Index() int {
	return a.index
}

// Get waits for the task at this position and returns its value, or its
// error wrapped in a *PositionError. The first Get of a run starts the
// workers. Outcomes are memoized; context and closure errors are not.
//
// Gets of one run are serialized. Reading positions out of order is allowed:
// outcomes of earlier positions are kept until their accessor asks for them.
func (a *Accessor[T]) Get(ctx context.Context) (T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done {
		return a.value, a.err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	out, err := a.r.fetch(ctx, a.index)
	if err != nil {
		var zero T
		return zero, err
	}

	a.done = true
	a.value = out.value
	if out.err != nil {
		a.err = &PositionError{Index: a.index, Err: out.err}
	}
	return a.value, a.err
}
