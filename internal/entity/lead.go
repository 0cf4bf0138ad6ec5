package entity

import (
	"strings"
	"time"
)

// Lead lifecycle states as reported by the backend. The backend is the only
// writer; the client never moves a lead between states on its own.
const (
	LeadStatusNew            = "new"
	LeadStatusContacted      = "contacted"
	LeadStatusQualified      = "qualified"
	LeadStatusWebsiteCreated = "website_created"
)

type Lead struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`

	BusinessName string  `json:"business_name"`
	BusinessType string  `json:"business_type"`
	Niche        string  `json:"niche"`
	Location     string  `json:"location"`
	WebsiteURL   *string `json:"website_url,omitempty"`
	Notes        *string `json:"notes,omitempty"`

	Status           string     `json:"status"`
	EmailSent        bool       `json:"email_sent"`
	EmailSentDate    *time.Time `json:"email_sent_date,omitempty"`
	PrototypeCreated bool       `json:"prototype_created"`
	PrototypeURL     *string    `json:"prototype_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasEmail reports whether the lead carries a non-blank email address.
func (l *Lead) HasEmail() bool {
	return l.Email != nil && strings.TrimSpace(*l.Email) != ""
}

// Consistent checks the derived completion flags against the lead's
// campaign and website history.
func (l *Lead) Consistent(campaigns []EmailCampaign, websites []Website) bool {
	sent := false
	for _, c := range campaigns {
		if c.Sent() {
			sent = true
			break
		}
	}
	return l.EmailSent == sent && l.PrototypeCreated == (len(websites) > 0)
}

// LeadFilter is applied by the backend; distinct filters are distinct cache
// entries.
type LeadFilter struct {
	Niche        string `json:"niche,omitempty"`
	Location     string `json:"location,omitempty"`
	BusinessType string `json:"business_type,omitempty"`
	Status       string `json:"status,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Normalize trims the text filters and applies the default limit.
func (f LeadFilter) Normalize(defaultLimit int) LeadFilter {
	f.Niche = strings.TrimSpace(f.Niche)
	f.Location = strings.TrimSpace(f.Location)
	f.BusinessType = strings.TrimSpace(f.BusinessType)
	f.Status = strings.TrimSpace(f.Status)
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	return f
}
