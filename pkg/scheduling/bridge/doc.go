// Package bridge runs a context-driven entrypoint synchronously from plain,
// non-concurrent code such as main.
//
//	func main() {
//		n, err := bridge.Block(func(ctx context.Context) (int, error) {
//			values, err := resolve.Collect(ctx, tasks, 8, 0)
//			return len(values), err
//		})
//		...
//	}
//
// Each run tunes the runtime once per process (see Install), builds a fresh
// root context cancelled on SIGINT or SIGTERM, attaches fresh executor pools
// and the configured zerolog logger to it, and tears the pools down after the
// entrypoint returns. Only one run may be in progress at a time.
package bridge
