package leadapi

import "github.com/xavierca1/lead-orchestrator/internal/entity"

type leadsResponse struct {
	Count int           `json:"count"`
	Leads []entity.Lead `json:"leads"`
}

type campaignsResponse struct {
	Count     int                    `json:"count"`
	Campaigns []entity.EmailCampaign `json:"campaigns"`
}

type websitesResponse struct {
	Count    int              `json:"count"`
	Websites []entity.Website `json:"websites"`
}

// SearchAck only says the background job started.
type SearchAck struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Query   entity.SearchQuery `json:"query"`
}

type SendEmailResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CreateWebsiteResult struct {
	Status     string `json:"status"`
	WebsiteURL string `json:"website_url"`
	Message    string `json:"message"`
}

type HealthResult struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
