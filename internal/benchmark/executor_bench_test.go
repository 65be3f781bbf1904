package benchmark

import (
	"context"
	"testing"

	"github.com/vnykmshr/taskflow/pkg/scheduling/executor"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

// BenchmarkUnblock measures the round trip of offloading to each pool kind.
func BenchmarkUnblock(b *testing.B) {
	for _, kind := range []executor.Kind{executor.Thread, executor.CPU} {
		b.Run(kind.String(), func(b *testing.B) {
			pools := executor.NewPools(executor.Options{})
			defer pools.Shutdown(true)
			ctx := executor.WithPools(context.Background(), pools)

			b.ReportAllocs()
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if _, err := executor.Offload(ctx, kind, func(context.Context) (int, error) { return 1, nil }); err != nil {
						b.Error(err)
						return
					}
				}
			})
		})
	}
}

// BenchmarkWorkerPoolSubmit measures raw submission to the underlying pool.
func BenchmarkWorkerPoolSubmit(b *testing.B) {
	for _, workers := range []int{2, 4, 8} {
		b.Run(workerLabel(workers), func(b *testing.B) {
			pool := workerpool.New(workers, 1000)
			defer func() { <-pool.Shutdown() }()

			task := workerpool.TaskFunc(func(_ context.Context) error {
				return nil
			})

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = pool.Submit(task)
			}
		})
	}
}
