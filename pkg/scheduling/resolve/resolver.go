package resolve

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/task"
)

// Resolver runs an ordered sequence of tasks on a bounded number of workers
// and hands the outcomes back in input order.
//
// A Resolver is built in two phases: construction validates the arguments and
// starts nothing; Start spawns the workers. Start is called implicitly by the
// first Accessor.Get.
type Resolver[T any] struct {
	name       string
	workers    int
	greediness int
	logger     zerolog.Logger
	registry   *metrics.Registry

	ctx    context.Context
	cancel context.CancelFunc
	stream *indexedStream[T]

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	iterated  atomic.Bool
	spawned   atomic.Int64
	wg        sync.WaitGroup

	// consumer side; fetchMu serializes Gets
	fetchMu   sync.Mutex
	nextFetch int
	parked    map[int]outcome[T]
	consumed  atomic.Int64
}

// Stats is a snapshot of a run.
type Stats struct {
	// Workers is the effective worker limit after capping to the task count.
	Workers int
	// Spawned is the number of workers started so far.
	Spawned int
	// Claimed is the number of tasks handed to workers so far.
	Claimed int
}

// New creates a Resolver over tasks with the given worker count and greediness.
func New[T any](ctx context.Context, tasks []task.Task[T], workers, greediness int) (*Resolver[T], error) {
	cfg := DefaultConfig()
	cfg.Workers = workers
	cfg.WorkerGreediness = greediness
	return NewWithConfig(ctx, tasks, cfg)
}

// NewWithConfig creates a Resolver over tasks using cfg. The worker count is
// capped to len(tasks).
func NewWithConfig[T any](ctx context.Context, tasks []task.Task[T], cfg Config) (*Resolver[T], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	workers := min(cfg.Workers, len(tasks))
	return newResolver(ctx, sliceStream(tasks), workers, cfg), nil
}

// FromSeq creates a Resolver over a sequence whose length is not known in
// advance. The sequence is enumerated at most once.
func FromSeq[T any](ctx context.Context, seq iter.Seq[task.Task[T]], cfg Config) (*Resolver[T], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if seq == nil {
		return nil, tferrors.NewValidationError(module, "tasks", nil, "cannot be nil").
			WithHint("provide a task sequence")
	}
	return newResolver(ctx, seqStream(seq), cfg.Workers, cfg), nil
}

func newResolver[T any](ctx context.Context, stream *indexedStream[T], workers int, cfg Config) *Resolver[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	context.AfterFunc(runCtx, stream.close)
	return &Resolver[T]{
		name:       cfg.Name,
		workers:    workers,
		greediness: cfg.WorkerGreediness,
		logger:     cfg.logger(),
		registry:   cfg.Metrics.Select(),
		ctx:        runCtx,
		cancel:     cancel,
		stream:     stream,
		parked:     make(map[int]outcome[T]),
	}
}

// Start spawns the workers. It is idempotent and returns once every worker
// has been spawned.
//
// Worker k+1 is spawned only after worker k has claimed its first task, so
// the first claims are dealt round-robin and spawning stops as soon as no
// unclaimed task is left.
func (r *Resolver[T]) Start() {
	r.startOnce.Do(func() {
		r.started.Store(true)
		if r.registry != nil {
			r.registry.ResolveRuns.WithLabelValues(r.name).Inc()
		}

		for id := 0; id < r.workers; id++ {
			if r.ctx.Err() != nil || !r.stream.hasUnclaimed() {
				break
			}
			w := newWorker(id, r)
			ready := make(chan struct{})
			r.wg.Add(1)
			r.spawned.Add(1)
			if r.registry != nil {
				r.registry.WorkersSpawned.WithLabelValues(r.name).Inc()
			}
			go w.run(ready)

			select {
			case <-ready:
			case <-r.ctx.Done():
			}
		}

		r.logger.Debug().
			Int("workers", int(r.spawned.Load())).
			Int("greediness", r.greediness).
			Msg("workers started")
	})
}

// Accessors returns the lazy, single-pass sequence of result accessors in
// input order. Only the first iteration yields anything.
//
// Breaking out of the loop abandons the run: workers are cancelled as if
// Close had been called. Accessors already obtained keep working for
// outcomes that were produced before the abandonment. The run context is
// released once every outcome has been consumed; callers that stop reading
// early without breaking should call Close.
func (r *Resolver[T]) Accessors() iter.Seq[*Accessor[T]] {
	return func(yield func(*Accessor[T]) bool) {
		if !r.iterated.CompareAndSwap(false, true) {
			return
		}
		for i := 0; r.stream.exists(i); i++ {
			if !yield(&Accessor[T]{index: i, r: r}) {
				r.Close()
				return
			}
		}
		r.release()
	}
}

// All resolves every position in order, yielding the value or the error of
// each task. Breaking out of the loop abandons the run.
func (r *Resolver[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for a := range r.Accessors() {
			if !yield(a.Get(ctx)) {
				return
			}
		}
		r.Close()
	}
}

// Len returns the number of tasks when it is known statically.
func (r *Resolver[T]) Len() (int, bool) {
	if r.stream.total < 0 {
		return 0, false
	}
	return r.stream.total, true
}

// Stats returns a snapshot of the run.
func (r *Resolver[T]) Stats() Stats {
	return Stats{
		Workers: r.workers,
		Spawned: int(r.spawned.Load()),
		Claimed: r.stream.claimedCount(),
	}
}

// Close cancels the run. Workers stop claiming tasks, running tasks observe a
// cancelled context and workers blocked on a full queue exit. Close is
// idempotent and does not wait; use Wait for that.
func (r *Resolver[T]) Close() {
	r.closeOnce.Do(func() {
		consumed := int(r.consumed.Load())
		if r.started.Load() && !r.stream.drained(consumed) {
			r.logger.Debug().Int("consumed", consumed).Msg("run abandoned")
			if r.registry != nil {
				r.registry.Abandonments.WithLabelValues(r.name).Inc()
			}
		}
		r.cancel()
		r.stream.close()
	})
}

// release cancels the run context once every outcome has been consumed.
func (r *Resolver[T]) release() {
	if r.stream.drained(int(r.consumed.Load())) {
		r.cancel()
	}
}

// Wait blocks until every spawned worker has exited.
func (r *Resolver[T]) Wait() {
	r.wg.Wait()
}

// fetch returns the outcome of index i, draining earlier indices into the
// parking area when they were not requested yet.
func (r *Resolver[T]) fetch(ctx context.Context, i int) (outcome[T], error) {
	r.Start()

	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()

	if out, ok := r.parked[i]; ok {
		delete(r.parked, i)
		return out, nil
	}
	if i < r.nextFetch {
		return outcome[T]{}, ErrConsumed
	}
	for {
		out, err := r.receive(ctx, r.nextFetch)
		if err != nil {
			return outcome[T]{}, err
		}
		r.nextFetch++
		r.consumed.Add(1)
		if out.index == i {
			r.release()
			return out, nil
		}
		r.parked[out.index] = out
	}
}

// receive waits until index j is claimed and pops its outcome from the
// claiming worker's queue. Per-worker queues are FIFO in claim order and
// indices are received in ascending order, so the head is always j.
func (r *Resolver[T]) receive(ctx context.Context, j int) (outcome[T], error) {
	for {
		queue, claimed, err := r.stream.lookup(j)
		if err != nil {
			return outcome[T]{}, err
		}
		if queue == nil {
			select {
			case <-claimed:
				continue
			case <-ctx.Done():
				return outcome[T]{}, ctx.Err()
			case <-r.ctx.Done():
				// no claims after this; the next lookup settles on a queue or ErrClosed
				r.stream.close()
				continue
			}
		}

		select {
		case out, ok := <-queue:
			if !ok {
				return outcome[T]{}, tferrors.ErrClosed
			}
			r.stream.forget(j)
			return out, nil
		case <-ctx.Done():
			return outcome[T]{}, ctx.Err()
		case <-r.ctx.Done():
			// an outcome pushed before the cancellation is still delivered
			select {
			case out, ok := <-queue:
				if ok {
					r.stream.forget(j)
					return out, nil
				}
			default:
			}
			return outcome[T]{}, tferrors.ErrClosed
		}
	}
}
