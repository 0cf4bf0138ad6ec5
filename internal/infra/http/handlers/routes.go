package handlers

import (
	"github.com/go-chi/chi/v5"
)

type Set struct {
	Leads     *LeadHandler
	Actions   *ActionHandler
	Dashboard *DashboardHandler
	Refresh   *RefreshHandler
	Health    *HealthHandler
	Limiter   *RateLimiter
}

// Mount registers the BFF routes. Mutating routes go through the limiter.
func (s Set) Mount(r chi.Router) {
	if s.Health != nil {
		r.Get("/health", s.Health.Handle)
	}

	r.Get("/leads", s.Leads.ListLeads)
	r.Get("/leads/{id}", s.Leads.GetLead)
	r.Get("/dashboard", s.Dashboard.Stats)
	r.Get("/actions/{handleId}", s.Actions.GetAction)

	r.Group(func(r chi.Router) {
		if s.Limiter != nil {
			r.Use(s.Limiter.Middleware)
		}
		r.Post("/leads/search", s.Leads.StartSearch)
		r.Post("/leads/{id}/email", s.Leads.SendEmail)
		r.Post("/leads/{id}/websites", s.Leads.CreateWebsite)
		r.Post("/refresh", s.Refresh.Refresh)
	})
}
