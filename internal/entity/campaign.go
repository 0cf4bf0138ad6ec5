package entity

import "time"

const (
	CampaignStatusQueued  = "queued"
	CampaignStatusPending = "pending"
	CampaignStatusSent    = "sent"
	CampaignStatusFailed  = "failed"
	CampaignStatusOpened  = "opened"
	CampaignStatusClicked = "clicked"
)

type EmailCampaign struct {
	ID        int64      `json:"id"`
	LeadID    int64      `json:"lead_id"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// Sent is true once delivery happened. Opened and clicked imply delivery.
func (c EmailCampaign) Sent() bool {
	switch c.Status {
	case CampaignStatusSent, CampaignStatusOpened, CampaignStatusClicked:
		return true
	}
	return false
}

type Website struct {
	ID           int64     `json:"id"`
	LeadID       int64     `json:"lead_id"`
	TemplateType string    `json:"template_type"`
	WebsiteURL   string    `json:"website_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// DashboardStats is always derived from the lead collection.
type DashboardStats struct {
	TotalLeads      int            `json:"total_leads"`
	EmailsSent      int            `json:"emails_sent"`
	WebsitesCreated int            `json:"websites_created"`
	StatusBreakdown map[string]int `json:"status_breakdown"`
	ConversionRate  float64        `json:"conversion_rate"`
}

type SearchQuery struct {
	Niche        string  `json:"niche"`
	Location     string  `json:"location"`
	BusinessType *string `json:"business_type,omitempty"`
	RadiusKm     int     `json:"radius_km,omitempty"`
}
