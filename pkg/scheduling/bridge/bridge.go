package bridge

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"reflect"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/ygrebnov/errorc"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/executor"
)

// Options configures a bridge run.
type Options struct {
	// Logger receives run events and is attached to the entrypoint context.
	// Nil disables logging.
	Logger *zerolog.Logger

	// Metrics selects the Prometheus registry. Disabled by default.
	Metrics metrics.Config

	// Executor configures the pools created for the run.
	Executor executor.Options

	// Signals cancel the entrypoint context. Empty selects SIGINT and SIGTERM.
	Signals []os.Signal
}

// DefaultOptions returns the options used by Block.
func DefaultOptions() Options {
	return Options{
		Signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// running guards against nested and concurrent runs.
var running atomic.Bool

// Block runs entry to completion and returns its result. It is meant for the
// single top-level call of a program and is not reentrant: calling it while
// another run is in progress fails with errors.ErrReentrant.
//
// entry receives a fresh root context that is cancelled on SIGINT or SIGTERM
// and carries fresh executor pools. Once entry returns the pools are closed,
// waiting for offloaded work, and reject further offloading.
func Block[T any](entry func(ctx context.Context) (T, error)) (T, error) {
	return Run(DefaultOptions(), entry)
}

// BlockWith runs entry with a bound argument, see Block.
func BlockWith[A, T any](entry func(ctx context.Context, a A) (T, error), a A) (T, error) {
	if entry == nil {
		var zero T
		return zero, errors.New("bridge: nil entrypoint")
	}
	return run(DefaultOptions(), FuncName(entry), func(ctx context.Context) (T, error) {
		return entry(ctx, a)
	})
}

// Decorate turns entry into a synchronous function that performs a Block run
// per call. Runs are logged and counted under the name of entry.
func Decorate[A, T any](entry func(ctx context.Context, a A) (T, error)) func(A) (T, error) {
	return DecorateWith(DefaultOptions(), entry)
}

// DecorateWith is Decorate with explicit options.
func DecorateWith[A, T any](opts Options, entry func(ctx context.Context, a A) (T, error)) func(A) (T, error) {
	name := FuncName(entry)
	return func(a A) (T, error) {
		if entry == nil {
			var zero T
			return zero, errors.New("bridge: nil entrypoint")
		}
		return run(opts, name, func(ctx context.Context) (T, error) {
			return entry(ctx, a)
		})
	}
}

// Run is Block with explicit options.
func Run[T any](opts Options, entry func(ctx context.Context) (T, error)) (T, error) {
	if entry == nil {
		var zero T
		return zero, errors.New("bridge: nil entrypoint")
	}
	return run(opts, FuncName(entry), entry)
}

func run[T any](opts Options, name string, entry func(ctx context.Context) (T, error)) (T, error) {
	if !running.CompareAndSwap(false, true) {
		var zero T
		return zero, errorc.With(tferrors.ErrReentrant, errorc.String("entrypoint", name))
	}
	defer running.Store(false)

	logger := opts.logger().With().Str("entrypoint", name).Logger()
	install(logger)

	signals := opts.Signals
	if len(signals) == 0 {
		signals = DefaultOptions().Signals
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()

	pools := executor.NewPools(opts.Executor)
	defer pools.Close()

	ctx = executor.WithPools(ctx, pools)
	ctx = logger.WithContext(ctx)

	if reg := opts.Metrics.Select(); reg != nil {
		reg.BridgeRuns.WithLabelValues(name).Inc()
	}

	start := time.Now()
	logger.Info().Msg("entrypoint started")

	v, err := entry(ctx)

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.Dur("took", time.Since(start)).Msg("entrypoint finished")

	return v, err
}

// FuncName returns the fully qualified name of the function fn, or "unknown".
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "unknown"
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return "unknown"
}
