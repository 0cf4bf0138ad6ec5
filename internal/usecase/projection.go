package usecase

import (
	"cmp"
	"math"
	"slices"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
)

// SortLeads orders a copy of leads most recent first, ties broken by id.
func SortLeads(leads []entity.Lead) []entity.Lead {
	out := slices.Clone(leads)
	slices.SortFunc(out, func(a, b entity.Lead) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if out == nil {
		out = []entity.Lead{}
	}
	return out
}

// ComputeStats aggregates the lead collection in one pass.
func ComputeStats(leads []entity.Lead) entity.DashboardStats {
	stats := entity.DashboardStats{
		TotalLeads:      len(leads),
		StatusBreakdown: make(map[string]int),
	}
	for _, l := range leads {
		stats.StatusBreakdown[l.Status]++
		if l.EmailSent {
			stats.EmailsSent++
		}
		if l.PrototypeCreated {
			stats.WebsitesCreated++
		}
	}
	stats.ConversionRate = ConversionRate(stats.WebsitesCreated, stats.TotalLeads)
	return stats
}

// ConversionRate is websites/total as a percentage with one decimal, and 0
// for an empty collection.
func ConversionRate(websites, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(websites)/float64(total)*1000) / 10
}

type LeadActions struct {
	CanSendEmail     bool   `json:"can_send_email"`
	SendEmailBlocked string `json:"send_email_blocked,omitempty"`
	EmailPending     bool   `json:"email_pending"`
	CanCreateWebsite bool   `json:"can_create_website"`
	WebsitePending   bool   `json:"website_pending"`
	WebsiteCount     int    `json:"website_count"`
}

// AvailableActions derives which buttons make sense for a lead. It mirrors
// the dispatcher's checks but never replaces them.
func AvailableActions(lead entity.Lead, websites int, inFlight func(entity.ActionKind, int64) bool) LeadActions {
	a := LeadActions{
		EmailPending:   inFlight(entity.ActionSendEmail, lead.ID),
		WebsitePending: inFlight(entity.ActionCreateWebsite, lead.ID),
		WebsiteCount:   websites,
	}
	switch {
	case !lead.HasEmail():
		a.SendEmailBlocked = "no email address"
	case lead.EmailSent:
		a.SendEmailBlocked = "already sent"
	case a.EmailPending:
		a.SendEmailBlocked = "in progress"
	default:
		a.CanSendEmail = true
	}
	a.CanCreateWebsite = !a.WebsitePending
	return a
}

type LeadDetail struct {
	Lead       entity.Lead            `json:"lead"`
	Campaigns  []entity.EmailCampaign `json:"campaigns"`
	Websites   []entity.Website       `json:"websites"`
	Actions    LeadActions            `json:"actions"`
	Consistent bool                   `json:"consistent"`
}

// BuildLeadDetail assembles the detail view with histories newest first.
func BuildLeadDetail(lead entity.Lead, campaigns []entity.EmailCampaign, websites []entity.Website, inFlight func(entity.ActionKind, int64) bool) LeadDetail {
	cs := slices.Clone(campaigns)
	slices.SortFunc(cs, func(a, b entity.EmailCampaign) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	ws := slices.Clone(websites)
	slices.SortFunc(ws, func(a, b entity.Website) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if cs == nil {
		cs = []entity.EmailCampaign{}
	}
	if ws == nil {
		ws = []entity.Website{}
	}
	return LeadDetail{
		Lead:       lead,
		Campaigns:  cs,
		Websites:   ws,
		Actions:    AvailableActions(lead, len(ws), inFlight),
		Consistent: lead.Consistent(cs, ws),
	}
}
