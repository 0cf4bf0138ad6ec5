package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
)

var (
	actionsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_actions_settled_total",
			Help: "Dispatched actions by kind and terminal status",
		},
		[]string{"kind", "status", "error_kind"},
	)

	actionsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lead_actions_in_flight",
			Help: "Actions dispatched and not yet settled",
		},
		[]string{"kind"},
	)

	cacheFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_cache_fetches_total",
			Help: "Backend fetches issued by the lead store",
		},
		[]string{"resource", "outcome"},
	)

	invalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_cache_invalidations_total",
			Help: "Invalidation passes by trigger",
		},
		[]string{"trigger"},
	)

	deferredPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lead_deferred_invalidations_pending",
			Help: "Deferred invalidations waiting for their grace interval",
		},
	)
)

func RecordDispatch(kind entity.ActionKind) {
	actionsInFlight.WithLabelValues(string(kind)).Inc()
}

func RecordSettle(kind entity.ActionKind) {
	actionsInFlight.WithLabelValues(string(kind)).Dec()
}

func RecordFetch(resource string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	cacheFetches.WithLabelValues(resource, outcome).Inc()
}

func RecordInvalidation(trigger string) {
	invalidations.WithLabelValues(trigger).Inc()
}

func SetDeferredPending(n int) {
	deferredPending.Set(float64(n))
}

// ActionObserver counts settled actions.
type ActionObserver struct{}

func (ActionObserver) ActionSettled(_ context.Context, rec entity.ActionRecord) {
	actionsSettled.WithLabelValues(string(rec.Kind), string(rec.Status), rec.ErrorKind).Inc()
}
