package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
)

const DefaultStatsLimit = 10000

// LeadViews serves read models derived from the lead store. Views never write
// to the cache themselves.
type LeadViews struct {
	store      *LeadStore
	dispatcher *Dispatcher
	statsLimit int
}

func NewLeadViews(store *LeadStore, dispatcher *Dispatcher, statsLimit int) *LeadViews {
	if statsLimit <= 0 {
		statsLimit = DefaultStatsLimit
	}
	return &LeadViews{store: store, dispatcher: dispatcher, statsLimit: statsLimit}
}

// Leads returns the filtered collection, most recent first.
func (v *LeadViews) Leads(ctx context.Context, f entity.LeadFilter) ([]entity.Lead, error) {
	leads, err := v.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return SortLeads(leads), nil
}

// Detail loads the lead and both histories concurrently.
func (v *LeadViews) Detail(ctx context.Context, id int64) (LeadDetail, error) {
	var (
		lead      entity.Lead
		campaigns []entity.EmailCampaign
		websites  []entity.Website
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lead, err = v.store.Lead(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		campaigns, err = v.store.Campaigns(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		websites, err = v.store.Websites(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return LeadDetail{}, err
	}
	return BuildLeadDetail(lead, campaigns, websites, v.inFlight), nil
}

// Dashboard aggregates the unfiltered collection locally.
func (v *LeadViews) Dashboard(ctx context.Context) (entity.DashboardStats, error) {
	leads, err := v.store.List(ctx, entity.LeadFilter{Limit: v.statsLimit})
	if err != nil {
		return entity.DashboardStats{}, err
	}
	return ComputeStats(leads), nil
}

// BackendDashboard returns the backend's own aggregate.
func (v *LeadViews) BackendDashboard(ctx context.Context) (entity.DashboardStats, error) {
	return v.store.BackendStats(ctx)
}

func (v *LeadViews) inFlight(kind entity.ActionKind, leadID int64) bool {
	if v.dispatcher == nil {
		return false
	}
	return v.dispatcher.InFlight(kind, leadID)
}
