package resolve

import (
	"iter"
	"sync"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/scheduling/task"
)

// outcome is the single completed result of one index.
type outcome[T any] struct {
	index int
	value T
	err   error
}

// indexedStream enumerates the task source exactly once. Workers claim
// (index, task) pairs from it; the consumer side uses it as a counting view
// and to find the worker queue holding each claimed index.
//
// Tasks pulled by the counting view before any worker claims them are
// buffered, so the source is never re-consumed.
type indexedStream[T any] struct {
	mu sync.Mutex

	next func() (task.Task[T], bool)
	stop func()

	total     int // -1 when the length is not known statically
	pulled    int
	claimed   int
	buffer    []task.Task[T]
	exhausted bool
	closed    bool

	slots  map[int]chan outcome[T]
	notify chan struct{}
}

func sliceStream[T any](tasks []task.Task[T]) *indexedStream[T] {
	i := 0
	next := func() (task.Task[T], bool) {
		if i >= len(tasks) {
			return nil, false
		}
		t := tasks[i]
		i++
		return t, true
	}
	return newIndexedStream(next, func() {}, len(tasks))
}

func seqStream[T any](seq iter.Seq[task.Task[T]]) *indexedStream[T] {
	next, stop := iter.Pull(seq)
	return newIndexedStream(next, stop, -1)
}

func newIndexedStream[T any](next func() (task.Task[T], bool), stop func(), total int) *indexedStream[T] {
	return &indexedStream[T]{
		next:   next,
		stop:   stop,
		total:  total,
		slots:  make(map[int]chan outcome[T]),
		notify: make(chan struct{}),
	}
}

// pull reads one task from the source. Callers hold s.mu.
func (s *indexedStream[T]) pull() (task.Task[T], bool) {
	if s.exhausted || s.closed {
		return nil, false
	}
	t, ok := s.next()
	if !ok {
		s.exhausted = true
		s.stop()
		s.broadcast()
		return nil, false
	}
	s.pulled++
	return t, true
}

// broadcast wakes every consumer waiting for a claim. Callers hold s.mu.
func (s *indexedStream[T]) broadcast() {
	close(s.notify)
	s.notify = make(chan struct{})
}

// claim hands the next unclaimed task to the worker owning queue and records
// that queue as the holder of the task's eventual outcome.
func (s *indexedStream[T]) claim(queue chan outcome[T]) (int, task.Task[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, nil, false
	}

	var t task.Task[T]
	if len(s.buffer) > 0 {
		t = s.buffer[0]
		s.buffer[0] = nil
		s.buffer = s.buffer[1:]
	} else {
		var ok bool
		if t, ok = s.pull(); !ok {
			return 0, nil, false
		}
	}

	index := s.claimed
	s.claimed++
	s.slots[index] = queue
	s.broadcast()
	return index, t, true
}

// hasUnclaimed reports whether a task is available for a new worker,
// pulling one task into the buffer when the length is unknown.
func (s *indexedStream[T]) hasUnclaimed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if len(s.buffer) > 0 {
		return true
	}
	if s.total >= 0 {
		return s.claimed < s.total
	}
	t, ok := s.pull()
	if !ok {
		return false
	}
	s.buffer = append(s.buffer, t)
	return true
}

// exists is the counting view: it reports whether index i is part of the
// sequence without consuming any task.
func (s *indexedStream[T]) exists(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total >= 0 {
		return i < s.total
	}
	for s.pulled <= i {
		t, ok := s.pull()
		if !ok {
			return false
		}
		s.buffer = append(s.buffer, t)
	}
	return true
}

// lookup returns the queue recorded for index i. When i is not claimed yet
// it returns the channel that is closed on the next claim.
func (s *indexedStream[T]) lookup(i int) (chan outcome[T], <-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.slots[i]; ok {
		return q, nil, nil
	}
	if s.beyond(i) {
		return nil, nil, ErrOutOfRange
	}
	if s.closed {
		return nil, nil, tferrors.ErrClosed
	}
	return nil, s.notify, nil
}

// beyond reports whether i lies past the end of the sequence. Callers hold s.mu.
func (s *indexedStream[T]) beyond(i int) bool {
	if s.total >= 0 {
		return i >= s.total
	}
	return s.exhausted && i >= s.pulled
}

// forget drops the queue mapping of a consumed index.
func (s *indexedStream[T]) forget(i int) {
	s.mu.Lock()
	delete(s.slots, i)
	s.mu.Unlock()
}

// drained reports whether every index was claimed and consumed.
func (s *indexedStream[T]) drained(consumed int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total >= 0 {
		return consumed >= s.total
	}
	return s.exhausted && consumed >= s.pulled
}

func (s *indexedStream[T]) claimedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimed
}

// close stops all further claims and releases the source.
func (s *indexedStream[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.buffer = nil
	if !s.exhausted {
		s.stop()
	}
	s.broadcast()
}
