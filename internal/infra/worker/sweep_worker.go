package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Expirer marks cache entries past their TTL as stale.
type Expirer interface {
	Expire() int
}

// Pruner forgets settled dispatch handles older than the retention window.
type Pruner interface {
	Prune(retention time.Duration) int
}

// SweepWorker ages the lead cache and the handle registry on a ticker.
type SweepWorker struct {
	cache        Expirer
	handles      Pruner
	retention    time.Duration
	tickInterval time.Duration
	log          *logrus.Entry
}

func NewSweepWorker(cache Expirer, handles Pruner, tickInterval, retention time.Duration) *SweepWorker {
	return &SweepWorker{
		cache:        cache,
		handles:      handles,
		retention:    retention,
		tickInterval: tickInterval,
		log:          logrus.WithField("component", "sweep_worker"),
	}
}

func (w *SweepWorker) Start(ctx context.Context) {
	w.log.Infof("sweep worker started (every %s, handle retention %s)", w.tickInterval, w.retention)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("sweep worker stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *SweepWorker) sweep() (expired, pruned int) {
	expired = w.cache.Expire()
	pruned = w.handles.Prune(w.retention)
	if expired > 0 || pruned > 0 {
		w.log.WithFields(logrus.Fields{
			"expired": expired,
			"pruned":  pruned,
		}).Debug("sweep done")
	}
	return expired, pruned
}
