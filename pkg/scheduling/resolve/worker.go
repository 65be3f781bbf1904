package resolve

import (
	"time"

	"github.com/vnykmshr/taskflow/pkg/scheduling/task"
)

// worker claims tasks from the shared stream and pushes their outcomes into
// its private bounded queue.
type worker[T any] struct {
	id    int
	r     *Resolver[T]
	queue chan outcome[T]
}

func newWorker[T any](id int, r *Resolver[T]) *worker[T] {
	return &worker[T]{
		id:    id,
		r:     r,
		queue: make(chan outcome[T], r.greediness+1),
	}
}

// run is the main loop for a worker. ready is closed after the first claim
// attempt.
func (w *worker[T]) run(ready chan struct{}) {
	defer w.r.wg.Done()
	defer close(w.queue)

	processed := 0
	defer func() {
		w.r.logger.Debug().Int("worker", w.id).Int("processed", processed).Msg("worker stopped")
	}()

	for first := true; ; first = false {
		if w.r.ctx.Err() != nil {
			if first {
				close(ready)
			}
			return
		}
		index, t, ok := w.r.stream.claim(w.queue)
		if first {
			close(ready)
		}
		if !ok {
			return
		}

		out := w.execute(index, t)
		processed++
		if !w.push(out) {
			return
		}
	}
}

// execute runs one task to completion through a task handle.
func (w *worker[T]) execute(index int, t task.Task[T]) outcome[T] {
	start := time.Now()
	h := task.Schedule(w.r.ctx, t)
	<-h.Done()
	value, err := h.Result()

	if reg := w.r.registry; reg != nil {
		reg.TaskExecutionDuration.WithLabelValues(w.r.name).Observe(time.Since(start).Seconds())
		if err != nil {
			reg.TasksFailed.WithLabelValues(w.r.name).Inc()
		} else {
			reg.TasksResolved.WithLabelValues(w.r.name).Inc()
		}
	}

	return outcome[T]{index: index, value: value, err: err}
}

// push delivers out to the queue, blocking while the queue is full. It
// returns false when the run was cancelled before the outcome was accepted.
func (w *worker[T]) push(out outcome[T]) bool {
	select {
	case w.queue <- out:
		return true
	default:
	}

	if w.r.registry != nil {
		w.r.registry.BackpressureEvents.WithLabelValues(w.r.name).Inc()
	}
	select {
	case w.queue <- out:
		return true
	case <-w.r.ctx.Done():
		return false
	}
}
