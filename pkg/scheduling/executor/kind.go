package executor

import (
	"fmt"
	"runtime"
)

const module = "executor"

// Kind selects the execution resource backing a Pool.
type Kind int

const (
	// Thread pools run blocking functions on workers that each own an OS thread.
	Thread Kind = iota

	// CPU pools run CPU-bound functions on one worker per available CPU.
	CPU
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case Thread:
		return "thread"
	case CPU:
		return "cpu"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DefaultWorkers returns the pool size used when no explicit size is given:
// ten workers per CPU for Thread, one per CPU for CPU. The CPU count is
// GOMAXPROCS, which follows the container CPU quota once Install has run,
// rather than the host core count.
func (k Kind) DefaultWorkers() int {
	cpus := runtime.GOMAXPROCS(0)
	if cpus < 1 {
		cpus = 1
	}
	if k == Thread {
		return 10 * cpus
	}
	return cpus
}
