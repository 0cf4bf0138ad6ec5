package usecase

import (
	"context"

	"github.com/xavierca1/lead-orchestrator/internal/cache"
	"github.com/xavierca1/lead-orchestrator/internal/entity"
	"github.com/xavierca1/lead-orchestrator/internal/infra/metrics"
)

// LeadStore is the typed face of the cache. Every cache mutation in the
// process goes through it.
type LeadStore struct {
	cache     *cache.Store
	api       LeadAPI
	listLimit int
}

func NewLeadStore(c *cache.Store, api LeadAPI, listLimit int) *LeadStore {
	if listLimit <= 0 {
		listLimit = 100
	}
	return &LeadStore{cache: c, api: api, listLimit: listLimit}
}

func (s *LeadStore) Lead(ctx context.Context, id int64) (entity.Lead, error) {
	return cache.Load(ctx, s.cache, cache.LeadKey(id), []string{cache.TagLeads}, func(ctx context.Context) (entity.Lead, error) {
		lead, err := s.api.GetLead(ctx, id)
		metrics.RecordFetch("lead", err)
		if err != nil {
			return entity.Lead{}, err
		}
		return *lead, nil
	})
}

// List returns the backend's answer for f. Filtering is done by the backend;
// each filter combination is its own entry.
func (s *LeadStore) List(ctx context.Context, f entity.LeadFilter) ([]entity.Lead, error) {
	f = f.Normalize(s.listLimit)
	return cache.Load(ctx, s.cache, cache.ListKey(f), []string{cache.TagLeads, cache.TagLeadsList}, func(ctx context.Context) ([]entity.Lead, error) {
		leads, err := s.api.ListLeads(ctx, f)
		metrics.RecordFetch("leads", err)
		return leads, err
	})
}

func (s *LeadStore) Campaigns(ctx context.Context, leadID int64) ([]entity.EmailCampaign, error) {
	tags := []string{cache.TagLeads, cache.LeadTag(leadID)}
	return cache.Load(ctx, s.cache, cache.CampaignsKey(leadID), tags, func(ctx context.Context) ([]entity.EmailCampaign, error) {
		campaigns, err := s.api.ListCampaigns(ctx, leadID)
		metrics.RecordFetch("campaigns", err)
		return campaigns, err
	})
}

func (s *LeadStore) Websites(ctx context.Context, leadID int64) ([]entity.Website, error) {
	tags := []string{cache.TagLeads, cache.LeadTag(leadID)}
	return cache.Load(ctx, s.cache, cache.WebsitesKey(leadID), tags, func(ctx context.Context) ([]entity.Website, error) {
		websites, err := s.api.ListWebsites(ctx, leadID)
		metrics.RecordFetch("websites", err)
		return websites, err
	})
}

// BackendStats is the backend's own aggregate, cached as a projection.
func (s *LeadStore) BackendStats(ctx context.Context) (entity.DashboardStats, error) {
	tags := []string{cache.TagLeads, cache.TagLeadsList}
	return cache.Load(ctx, s.cache, cache.KeyDashboard, tags, func(ctx context.Context) (entity.DashboardStats, error) {
		stats, err := s.api.DashboardStats(ctx)
		metrics.RecordFetch("dashboard", err)
		if err != nil {
			return entity.DashboardStats{}, err
		}
		return *stats, nil
	})
}

// PutLead seeds or overwrites the cached copy of one lead.
func (s *LeadStore) PutLead(lead entity.Lead) {
	s.cache.Put(cache.LeadKey(lead.ID), []string{cache.TagLeads}, lead)
}

// CachedLead reads the cached copy without fetching.
func (s *LeadStore) CachedLead(id int64) (lead entity.Lead, stale bool, ok bool) {
	v, meta, found := s.cache.Peek(cache.LeadKey(id))
	if !found {
		return entity.Lead{}, false, false
	}
	lead, ok = v.(entity.Lead)
	return lead, meta.Stale, ok
}

func (s *LeadStore) Invalidate(targets ...string) int {
	return s.cache.Invalidate(targets...)
}

func (s *LeadStore) Revalidate(ctx context.Context, targets ...string) error {
	return s.cache.Revalidate(ctx, targets...)
}

func (s *LeadStore) Expire() int {
	return s.cache.Expire()
}
