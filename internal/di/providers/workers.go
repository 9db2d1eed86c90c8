package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ablbsk/bookworm-api/internal/config"
	"github.com/ablbsk/bookworm-api/internal/service"
)

// SweepJob runs the periodic orphaned book sweep.
type SweepJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *SweepJob) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideSweepJob starts the sweeper. Each pass is followed by a garbage
// collection of the catalog search cache.
func ProvideSweepJob(i do.Injector) (*SweepJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	sweeper := do.MustInvoke[*service.Sweeper](i)
	cacheHandle := do.MustInvoke[*SearchCacheHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	ctx, cancel := context.WithCancel(context.Background())
	job := &SweepJob{cancel: cancel, done: make(chan struct{})}

	if cfg.Collection.SweepInterval <= 0 {
		log.Info("orphaned book sweeper disabled")
		close(job.done)
		return job, nil
	}

	var after []func(context.Context)
	if cacheHandle.Cache != nil {
		after = append(after, func(context.Context) {
			if err := cacheHandle.Cache.CollectGarbage(); err != nil {
				log.Warn("catalog cache garbage collection failed", "error", err)
			}
		})
	}

	go func() {
		defer close(job.done)
		sweeper.Run(ctx, cfg.Collection.SweepInterval, after...)
	}()

	log.Info("orphaned book sweeper started", "interval", cfg.Collection.SweepInterval)

	return job, nil
}
