package bridge

import (
	"sync"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"
)

// memLimitRatio is the share of the container memory limit given to GOMEMLIMIT.
const memLimitRatio = 0.9

var installOnce sync.Once

// Install tunes the Go runtime to the resources granted to the process:
// GOMAXPROCS follows the CPU quota and GOMEMLIMIT the memory limit of the
// enclosing cgroup. Only the first call has an effect. Block calls it.
func Install() {
	install(zerolog.Nop())
}

func install(logger zerolog.Logger) {
	installOnce.Do(func() {
		if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			logger.Debug().Msgf(format, args...)
		})); err != nil {
			logger.Warn().Err(err).Msg("failed to set GOMAXPROCS")
		}

		limit, err := memlimit.SetGoMemLimitWithOpts(
			memlimit.WithRatio(memLimitRatio),
			memlimit.WithProvider(memlimit.FromCgroup),
		)
		if err != nil {
			// no cgroup limit is the common case outside containers
			logger.Debug().Err(err).Msg("GOMEMLIMIT left unchanged")
			return
		}
		logger.Debug().Int64("limit", limit).Msg("set GOMEMLIMIT")
	})
}
