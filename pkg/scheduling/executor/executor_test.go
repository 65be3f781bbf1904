package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/taskflow/internal/testutil"
	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/task"
)

func TestKind(t *testing.T) {
	require.Equal(t, "thread", Thread.String())
	require.Equal(t, "cpu", CPU.String())
	require.Equal(t, "kind(7)", Kind(7).String())
	require.Equal(t, 10*CPU.DefaultWorkers(), Thread.DefaultWorkers())
	require.GreaterOrEqual(t, CPU.DefaultWorkers(), 1)
}

func TestPoolNotInitialized(t *testing.T) {
	p := NewPool(Thread, Options{})

	require.False(t, p.Initialized())
	require.Zero(t, p.Size())

	_, err := p.Pool()
	require.ErrorIs(t, err, tferrors.ErrNotInitialized)

	_, err = Submit(context.Background(), p, func(context.Context) (int, error) { return 1, nil })
	require.ErrorIs(t, err, tferrors.ErrNotInitialized)

	// no-op
	p.Shutdown(true)
}

func TestInitializeTwiceReplacesWithoutWaiting(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	p := NewPool(Thread, Options{})
	require.NoError(t, p.Initialize(1))
	first, err := p.Pool()
	require.NoError(t, err)

	gate := testutil.NewGate()
	h, err := Submit(ctx, p, func(context.Context) (string, error) {
		if err := gate.Wait(ctx); err != nil {
			return "", err
		}
		return "first", nil
	})
	require.NoError(t, err)

	replaced := make(chan struct{})
	go func() {
		_ = p.Initialize(2)
		close(replaced)
	}()

	select {
	case <-replaced:
	case <-time.After(time.Second):
		t.Fatal("Initialize waited for in-flight work of the previous pool")
	}

	second, err := p.Pool()
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.Equal(t, 2, p.Size())

	// in-flight work of the replaced pool still completes
	gate.Open()
	v, err := h.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "first", v)

	h2, err := Submit(ctx, p, func(context.Context) (string, error) { return "second", nil })
	require.NoError(t, err)
	v, err = h2.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "second", v)

	p.Shutdown(true)
	<-first.Shutdown()
}

func TestInitializeWithBlockedSubmitter(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	p := NewPool(Thread, Options{QueueSize: 1})
	require.NoError(t, p.Initialize(1))

	gate := testutil.NewGate()
	gated := func(ctx context.Context) (int, error) { return 1, gate.Wait(ctx) }

	// one running, one queued
	h1, err := Submit(ctx, p, gated)
	require.NoError(t, err)
	wp, err := p.Pool()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return wp.ActiveWorkers() == 1 }, time.Second, time.Millisecond)
	h2, err := Submit(ctx, p, gated)
	require.NoError(t, err)

	type submitted struct {
		h   *task.Handle[int]
		err error
	}
	third := make(chan submitted, 1)
	go func() {
		h, err := Submit(ctx, p, gated)
		third <- submitted{h, err}
	}()
	time.Sleep(20 * time.Millisecond)

	replaced := make(chan error, 1)
	go func() { replaced <- p.Initialize(1) }()

	select {
	case err := <-replaced:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Initialize waited for in-flight work of the previous pool")
	}
	require.True(t, p.Initialized())

	// the blocked submission moves over to the fresh pool
	var s submitted
	select {
	case s = <-third:
		require.NoError(t, s.err)
	case <-time.After(time.Second):
		t.Fatal("submitter stayed blocked on the replaced pool")
	}

	gate.Open()
	for _, h := range []*task.Handle[int]{h1, h2, s.h} {
		v, err := h.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, v)
	}

	p.Shutdown(true)
	<-wp.Shutdown()
}

func TestSubmitTimeout(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	p := NewPool(CPU, Options{QueueSize: 1, SubmitTimeout: 20 * time.Millisecond})
	require.NoError(t, p.Initialize(1))
	defer p.Shutdown(true)

	gate := testutil.NewGate()
	defer gate.Open()
	gated := func(ctx context.Context) (int, error) { return 1, gate.Wait(ctx) }

	_, err := Submit(ctx, p, gated)
	require.NoError(t, err)
	wp, err := p.Pool()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return wp.ActiveWorkers() == 1 }, time.Second, time.Millisecond)
	_, err = Submit(ctx, p, gated)
	require.NoError(t, err)

	_, err = Submit(ctx, p, gated)
	require.ErrorIs(t, err, tferrors.ErrTimeout)
}

func TestTaskTimeout(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	p := NewPool(Thread, Options{TaskTimeout: 20 * time.Millisecond})
	require.NoError(t, p.Initialize(1))
	defer p.Shutdown(true)

	h, err := Submit(ctx, p, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)

	_, err = h.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, ctx.Err())
}

func TestShutdownTimeoutCancelsRunning(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	p := NewPool(CPU, Options{ShutdownTimeout: 20 * time.Millisecond})
	require.NoError(t, p.Initialize(1))

	h, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not cancel the running function after the shutdown timeout")
	}

	_, err = h.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestShutdownWait(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	p := NewPool(CPU, Options{})
	require.NoError(t, p.Initialize(2))

	var done atomic.Int64
	for i := 0; i < 6; i++ {
		_, err := Submit(ctx, p, func(context.Context) (struct{}, error) {
			time.Sleep(5 * time.Millisecond)
			done.Add(1)
			return struct{}{}, nil
		})
		require.NoError(t, err)
	}

	p.Shutdown(true)
	require.Equal(t, int64(6), done.Load())
	require.False(t, p.Initialized())

	_, err := p.Pool()
	require.ErrorIs(t, err, tferrors.ErrNotInitialized)
}

func TestShutdownWithoutWait(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	p := NewPool(Thread, Options{})
	wp, err := p.EnsureInitialized(1)
	require.NoError(t, err)

	gate := testutil.NewGate()
	h, err := Submit(ctx, p, func(ctx context.Context) (int, error) {
		return 1, gate.Wait(ctx)
	})
	require.NoError(t, err)

	p.Shutdown(false)
	require.False(t, p.Initialized())

	gate.Open()
	_, err = h.Wait(ctx)
	require.NoError(t, err)
	<-wp.Shutdown()
}

func TestCloseIsFinal(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	pools := NewPools(Options{})
	ctx = WithPools(ctx, pools)

	_, err := UnblockCPU(ctx, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	pools.Close()
	require.False(t, pools.CPU.Initialized())

	_, err = UnblockCPU(ctx, func(context.Context) (int, error) { return 1, nil })
	require.ErrorIs(t, err, tferrors.ErrClosed)
	require.ErrorIs(t, pools.Thread.Initialize(1), tferrors.ErrClosed)

	_, err = pools.CPU.Pool()
	require.ErrorIs(t, err, tferrors.ErrClosed)
	require.False(t, pools.Thread.Initialized())
}

func TestEnsureInitializedConcurrent(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPool(Thread, Options{Metrics: metrics.Config{Enabled: true, Registry: reg}})
	defer p.Shutdown(true)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.EnsureInitialized(3)
		}()
	}
	wg.Wait()

	require.Equal(t, 3, p.Size())
	m := metrics.For(reg)
	require.Equal(t, float64(1), promtest.ToFloat64(m.ExecutorInitializations.WithLabelValues("thread")))
}

func TestSubmitPanic(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	p := NewPool(CPU, Options{})
	require.NoError(t, p.Initialize(1))
	defer p.Shutdown(true)

	h, err := Submit(ctx, p, func(context.Context) (int, error) { panic("boom") })
	require.NoError(t, err)

	_, err = h.Wait(ctx)
	require.ErrorIs(t, err, task.ErrTaskPanicked)
	require.Contains(t, err.Error(), "boom")
}

func TestSubmitNilFunction(t *testing.T) {
	p := NewPool(CPU, Options{})
	_, err := Submit[int](context.Background(), p, nil)
	require.Error(t, err)
}

func TestUnblock(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	pools := NewPools(Options{})
	defer pools.Shutdown(true)
	ctx = WithPools(ctx, pools)

	require.False(t, pools.Thread.Initialized())

	v, err := Unblock(ctx, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, Thread.DefaultWorkers(), pools.Thread.Size())
	require.False(t, pools.CPU.Initialized())

	v, err = UnblockCPU(ctx, func(context.Context) (int, error) {
		sum := 0
		for i := 1; i <= 100; i++ {
			sum += i
		}
		return sum, nil
	})
	require.NoError(t, err)
	require.Equal(t, 5050, v)
	require.Equal(t, CPU.DefaultWorkers(), pools.CPU.Size())
}

func TestUnblockKeepsExistingPool(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	pools := NewPools(Options{})
	defer pools.Shutdown(true)
	require.NoError(t, pools.Thread.Initialize(2))
	ctx = WithPools(ctx, pools)

	_, err := Unblock(ctx, func(context.Context) (struct{}, error) { return struct{}{}, nil })
	require.NoError(t, err)
	require.Equal(t, 2, pools.Thread.Size())
}

func TestUnblockError(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	pools := NewPools(Options{})
	defer pools.Shutdown(true)
	ctx = WithPools(ctx, pools)

	sentinel := errors.New("read failed")
	_, err := Unblock(ctx, func(context.Context) ([]byte, error) { return nil, sentinel })
	require.ErrorIs(t, err, sentinel)
}

func TestUnblockContextCancel(t *testing.T) {
	pools := NewPools(Options{})
	defer pools.Shutdown(true)

	gate := testutil.NewGate()
	defer gate.Open()

	ctx, cancel := context.WithTimeout(WithPools(context.Background(), pools), 20*time.Millisecond)
	defer cancel()

	_, err := Unblock(ctx, func(context.Context) (int, error) {
		// ignores cancellation on purpose
		return 0, gate.Wait(context.Background())
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolsFromFallsBackToDefault(t *testing.T) {
	require.Same(t, Default(), PoolsFrom(context.Background()))

	pools := NewPools(Options{})
	require.Same(t, pools, PoolsFrom(WithPools(context.Background(), pools)))
	require.Same(t, pools.CPU, pools.Get(CPU))
	require.Same(t, pools.Thread, pools.Get(Thread))

	v, err := Unblock(context.Background(), func(context.Context) (string, error) { return "default", nil })
	require.NoError(t, err)
	require.Equal(t, "default", v)
	require.True(t, Default().Thread.Initialized())

	Default().Shutdown(true)
}

func TestOffloadMetrics(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	reg := prometheus.NewRegistry()
	pools := NewPools(Options{Metrics: metrics.Config{Enabled: true, Registry: reg}})
	ctx = WithPools(ctx, pools)

	for i := 0; i < 3; i++ {
		_, err := UnblockCPU(ctx, func(context.Context) (int, error) { return i, nil })
		require.NoError(t, err)
	}
	pools.Shutdown(true)

	m := metrics.For(reg)
	require.Equal(t, float64(3), promtest.ToFloat64(m.OffloadedTasks.WithLabelValues("cpu")))
	require.Equal(t, float64(1), promtest.ToFloat64(m.ExecutorShutdowns.WithLabelValues("cpu")))
	require.Equal(t, float64(3), promtest.ToFloat64(m.PoolTasksExecuted.WithLabelValues("executor_cpu")))
}
