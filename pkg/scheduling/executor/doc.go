// Package executor manages the execution resources that blocking and
// CPU-bound functions are offloaded to.
//
// A Pool is an explicit handle over a replaceable workerpool.Pool: it starts
// uninitialized, Initialize installs a fresh pool (tearing down the previous
// one without waiting), Shutdown removes it and Close removes it for good.
// Accessing an uninitialized Pool fails with errors.ErrNotInitialized.
//
// Pools travel in a context.Context:
//
//	pools := executor.NewPools(executor.Options{})
//	defer pools.Close()
//	ctx = executor.WithPools(ctx, pools)
//
//	body, err := executor.Unblock(ctx, func(ctx context.Context) ([]byte, error) {
//		return os.ReadFile(path)
//	})
//
// Unblock and UnblockCPU initialize the pool on first use with
// Kind.DefaultWorkers workers. Contexts without pools use Default.
package executor
