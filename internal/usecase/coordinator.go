package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xavierca1/lead-orchestrator/internal/cache"
	"github.com/xavierca1/lead-orchestrator/internal/entity"
	"github.com/xavierca1/lead-orchestrator/internal/infra/metrics"
)

const revalidateTimeout = 30 * time.Second

type deferredInvalidation struct {
	timer Stopper
	seq   uint64
}

// Coordinator turns settled actions into cache invalidations.
//
// Email and website actions are recorded by the time the backend answers, so
// they invalidate at once. A search answer only means a job started; its
// completion is estimated with a single deferred invalidation after the grace
// interval. The estimate can be early or late, hence Refresh and
// SearchCompleted.
type Coordinator struct {
	store Invalidator
	grace time.Duration
	after AfterFunc
	log   *logrus.Entry

	mu       sync.Mutex
	seq      uint64
	deferred map[string]deferredInvalidation
	stopped  bool

	wg sync.WaitGroup
}

func NewCoordinator(store Invalidator, grace time.Duration) *Coordinator {
	return &Coordinator{
		store:    store,
		grace:    grace,
		after:    timeAfterFunc,
		log:      logrus.WithField("component", "coordinator"),
		deferred: make(map[string]deferredInvalidation),
	}
}

func (c *Coordinator) ActionSucceeded(kind entity.ActionKind, leadID int64) {
	switch kind {
	case entity.ActionSendEmail, entity.ActionCreateWebsite:
		c.invalidate(string(kind), cache.LeadTag(leadID), cache.TagLeadsList)
	case entity.ActionStartSearch:
		c.ScheduleDeferred(cache.TagLeads)
	}
}

// ScheduleDeferred invalidates and re-fetches targets once the grace interval
// elapses. Only one timer exists per target set; scheduling again restarts it.
func (c *Coordinator) ScheduleDeferred(targets ...string) {
	key := deferredKey(targets)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if prev, ok := c.deferred[key]; ok {
		prev.timer.Stop()
	}
	c.seq++
	seq := c.seq
	c.deferred[key] = deferredInvalidation{
		seq: seq,
		timer: c.after(c.grace, func() {
			c.fire(key, seq, targets)
		}),
	}
	metrics.SetDeferredPending(len(c.deferred))
	c.log.WithField("targets", targets).Infof("deferred invalidation in %s", c.grace)
}

func (c *Coordinator) fire(key string, seq uint64, targets []string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if cur, ok := c.deferred[key]; ok && cur.seq == seq {
		delete(c.deferred, key)
	}
	metrics.SetDeferredPending(len(c.deferred))
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	c.log.WithField("targets", targets).Info("grace interval elapsed, refreshing")
	n := c.store.Invalidate(targets...)
	metrics.RecordInvalidation("deferred")
	c.log.Debugf("deferred invalidation touched %d entries", n)
	c.revalidate(targets)
}

// Refresh is the manual escape hatch: invalidate and re-fetch the whole lead
// collection now.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.store.Invalidate(cache.TagLeads)
	metrics.RecordInvalidation("manual")
	return c.store.Revalidate(ctx, cache.TagLeads)
}

// SearchCompleted is called when the backend reports a finished search. The
// pending estimate is dropped and the collection refreshed immediately.
func (c *Coordinator) SearchCompleted(ctx context.Context) error {
	key := deferredKey([]string{cache.TagLeads})
	c.mu.Lock()
	if prev, ok := c.deferred[key]; ok {
		prev.timer.Stop()
		delete(c.deferred, key)
	}
	metrics.SetDeferredPending(len(c.deferred))
	c.mu.Unlock()

	c.store.Invalidate(cache.TagLeads)
	metrics.RecordInvalidation("search_completed")
	return c.store.Revalidate(ctx, cache.TagLeads)
}

// PendingDeferred reports how many deferred invalidations are waiting.
func (c *Coordinator) PendingDeferred() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deferred)
}

// Stop cancels pending timers and waits for background re-fetches, including
// a deferred refresh whose timer already fired.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped = true
	for key, d := range c.deferred {
		d.timer.Stop()
		delete(c.deferred, key)
	}
	metrics.SetDeferredPending(0)
	c.mu.Unlock()
	c.wg.Wait()
}

// Wait blocks until background re-fetches started so far are done.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) invalidate(trigger string, targets ...string) {
	n := c.store.Invalidate(targets...)
	metrics.RecordInvalidation(trigger)
	c.log.WithFields(logrus.Fields{"trigger": trigger, "targets": targets}).Debugf("invalidated %d entries", n)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.revalidate(targets)
	}()
}

func (c *Coordinator) revalidate(targets []string) {
	ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
	defer cancel()
	if err := c.store.Revalidate(ctx, targets...); err != nil {
		c.log.WithField("targets", targets).Warnf("revalidation failed: %v", err)
	}
}

func deferredKey(targets []string) string {
	return strings.Join(targets, ",")
}
