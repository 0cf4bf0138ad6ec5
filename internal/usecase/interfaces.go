package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
	"github.com/xavierca1/lead-orchestrator/internal/infra/integration/leadapi"
)

// LeadAPI is the backend contract consumed by this layer.
type LeadAPI interface {
	ListLeads(ctx context.Context, f entity.LeadFilter) ([]entity.Lead, error)
	GetLead(ctx context.Context, id int64) (*entity.Lead, error)
	ListCampaigns(ctx context.Context, leadID int64) ([]entity.EmailCampaign, error)
	ListWebsites(ctx context.Context, leadID int64) ([]entity.Website, error)
	DashboardStats(ctx context.Context) (*entity.DashboardStats, error)

	StartSearch(ctx context.Context, q entity.SearchQuery) (*leadapi.SearchAck, error)
	SendEmail(ctx context.Context, leadID int64, includeWebsite *bool) (*leadapi.SendEmailResult, error)
	CreateWebsite(ctx context.Context, leadID int64, templateType string) (*leadapi.CreateWebsiteResult, error)
}

// Invalidator is the slice of the lead store the coordinator needs.
type Invalidator interface {
	Invalidate(targets ...string) int
	Revalidate(ctx context.Context, targets ...string) error
}

// Settler is notified when a dispatched action succeeds.
type Settler interface {
	ActionSucceeded(kind entity.ActionKind, leadID int64)
}

// Stopper is satisfied by *time.Timer.
type Stopper interface {
	Stop() bool
}

type AfterFunc func(d time.Duration, f func()) Stopper

func timeAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}
