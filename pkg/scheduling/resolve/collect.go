package resolve

import (
	"context"
	"iter"

	"github.com/vnykmshr/taskflow/pkg/scheduling/task"
)

// Collect runs tasks with the given worker count and greediness and returns
// their values in input order.
//
// On the first error, in input order, Collect stops, abandons the remaining
// work and returns the values resolved before that position together with
// the error.
func Collect[T any](ctx context.Context, tasks []task.Task[T], workers, greediness int) ([]T, error) {
	cfg := DefaultConfig()
	cfg.Workers = workers
	cfg.WorkerGreediness = greediness
	return CollectWithConfig(ctx, tasks, cfg)
}

// CollectWithConfig is Collect with a full configuration.
func CollectWithConfig[T any](ctx context.Context, tasks []task.Task[T], cfg Config) ([]T, error) {
	r, err := NewWithConfig(ctx, tasks, cfg)
	if err != nil {
		return nil, err
	}
	return r.Collect(ctx)
}

// CollectSeq is Collect over a sequence of unknown length.
func CollectSeq[T any](ctx context.Context, seq iter.Seq[task.Task[T]], cfg Config) ([]T, error) {
	r, err := FromSeq(ctx, seq, cfg)
	if err != nil {
		return nil, err
	}
	return r.Collect(ctx)
}

// Collect drains the run in order. See the package-level Collect.
func (r *Resolver[T]) Collect(ctx context.Context) ([]T, error) {
	n, _ := r.Len()
	results := make([]T, 0, n)
	for v, err := range r.All(ctx) {
		if err != nil {
			return results, err
		}
		results = append(results, v)
	}
	return results, nil
}
