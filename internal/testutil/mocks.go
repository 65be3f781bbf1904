package testutil

import (
	"context"
	"sync"
	"sync/atomic"
)

// Gate is a latch that blocks callers of Wait until Open is called.
// Tests use it to hold tasks in flight at a known point.
type Gate struct {
	once sync.Once
	ch   chan struct{}
}

// NewGate creates a closed gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Open releases every current and future waiter.
func (g *Gate) Open() {
	g.once.Do(func() { close(g.ch) })
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tracker records how many tasks are running and the peak concurrency seen.
type Tracker struct {
	running  atomic.Int64
	peak     atomic.Int64
	started  atomic.Int64
	finished atomic.Int64
}

// Enter marks a task as started. Call the returned func when it finishes.
func (tr *Tracker) Enter() func() {
	tr.started.Add(1)
	n := tr.running.Add(1)
	for {
		p := tr.peak.Load()
		if n <= p || tr.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() {
		tr.running.Add(-1)
		tr.finished.Add(1)
	}
}

// Started returns the number of tasks that have started.
func (tr *Tracker) Started() int64 { return tr.started.Load() }

// Finished returns the number of tasks that have finished.
func (tr *Tracker) Finished() int64 { return tr.finished.Load() }

// Peak returns the highest number of tasks observed running at once.
func (tr *Tracker) Peak() int64 { return tr.peak.Load() }
