package cache

import (
	"net/url"
	"strconv"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
)

const (
	// TagLeads labels everything derived from the lead collection.
	TagLeads = "leads"
	// TagLeadsList labels list views and the backend dashboard copy.
	TagLeadsList = "leads-list"

	KeyDashboard = "dashboard-stats"
)

func LeadTag(id int64) string {
	return "lead:" + strconv.FormatInt(id, 10)
}

func LeadKey(id int64) string {
	return LeadTag(id)
}

func CampaignsKey(leadID int64) string {
	return "campaigns:" + strconv.FormatInt(leadID, 10)
}

func WebsitesKey(leadID int64) string {
	return "websites:" + strconv.FormatInt(leadID, 10)
}

// ListKey encodes the server-side filter into the key. url.Values sorts its
// keys, so equal filters always produce equal keys.
func ListKey(f entity.LeadFilter) string {
	return TagLeadsList + "?" + FilterQuery(f).Encode()
}

// FilterQuery renders the filter as backend query parameters.
func FilterQuery(f entity.LeadFilter) url.Values {
	v := url.Values{}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Niche != "" {
		v.Set("niche", f.Niche)
	}
	if f.Location != "" {
		v.Set("location", f.Location)
	}
	if f.BusinessType != "" {
		v.Set("business_type", f.BusinessType)
	}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	return v
}
