package executor

import (
	"context"
	"sync"
)

// Pools bundles the thread-backed and CPU-backed executors used by the
// offload adapters.
type Pools struct {
	Thread *Pool
	CPU    *Pool
}

// NewPools creates uninitialized Thread and CPU pools sharing opts.
func NewPools(opts Options) *Pools {
	return &Pools{
		Thread: NewPool(Thread, opts),
		CPU:    NewPool(CPU, opts),
	}
}

// Get returns the pool of the given kind.
func (ps *Pools) Get(kind Kind) *Pool {
	if kind == CPU {
		return ps.CPU
	}
	return ps.Thread
}

// Shutdown shuts down both pools concurrently.
func (ps *Pools) Shutdown(wait bool) {
	ps.each(func(p *Pool) { p.Shutdown(wait) })
}

// Close closes both pools concurrently. Offloading to closed pools fails with
// errors.ErrClosed.
func (ps *Pools) Close() {
	ps.each((*Pool).Close)
}

func (ps *Pools) each(fn func(*Pool)) {
	var wg sync.WaitGroup
	for _, p := range []*Pool{ps.Thread, ps.CPU} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(p)
		}()
	}
	wg.Wait()
}

type poolsKey struct{}

// WithPools returns a copy of ctx carrying pools. Offload adapters called with
// the returned context, or any context derived from it, use these pools.
func WithPools(ctx context.Context, pools *Pools) context.Context {
	return context.WithValue(ctx, poolsKey{}, pools)
}

// PoolsFrom returns the pools carried by ctx, falling back to Default.
func PoolsFrom(ctx context.Context) *Pools {
	if ctx != nil {
		if ps, ok := ctx.Value(poolsKey{}).(*Pools); ok && ps != nil {
			return ps
		}
	}
	return Default()
}

var (
	defaultOnce  sync.Once
	defaultPools *Pools
)

// Default returns the process-wide pools used when a context carries none.
// They are created uninitialized and initialized on first offload.
func Default() *Pools {
	defaultOnce.Do(func() {
		defaultPools = NewPools(Options{})
	})
	return defaultPools
}
