package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vnykmshr/taskflow/pkg/scheduling/resolve"
	"github.com/vnykmshr/taskflow/pkg/scheduling/task"
)

func identityTasks(n int) []task.Task[int] {
	tasks := make([]task.Task[int], n)
	for i := range tasks {
		tasks[i] = task.Return(i)
	}
	return tasks
}

// BenchmarkCollect measures end-to-end ordered resolution of trivial tasks.
func BenchmarkCollect(b *testing.B) {
	for _, workers := range []int{1, 4, 16, 64} {
		b.Run(workerLabel(workers), func(b *testing.B) {
			tasks := identityTasks(256)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := resolve.Collect(ctx, tasks, workers, 0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkCollectGreediness measures the effect of look-ahead on tasks with
// uneven durations.
func BenchmarkCollectGreediness(b *testing.B) {
	for _, greediness := range []int{0, 1, 4, 16} {
		b.Run(fmt.Sprintf("Greediness-%d", greediness), func(b *testing.B) {
			tasks := make([]task.Task[int], 64)
			for i := range tasks {
				d := time.Duration(i%4) * 50 * time.Microsecond
				tasks[i] = func(context.Context) (int, error) {
					time.Sleep(d)
					return i, nil
				}
			}
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := resolve.Collect(ctx, tasks, 8, greediness); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkAccessorsEarlyExit measures abandoning a large run after a few results.
func BenchmarkAccessorsEarlyExit(b *testing.B) {
	tasks := identityTasks(10_000)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := resolve.New(ctx, tasks, 32, 0)
		if err != nil {
			b.Fatal(err)
		}
		for a := range r.Accessors() {
			if _, err := a.Get(ctx); err != nil {
				b.Fatal(err)
			}
			if a.Index() == 10 {
				break
			}
		}
		r.Wait()
	}
}

func workerLabel(workers int) string {
	return fmt.Sprintf("Workers-%d", workers)
}
