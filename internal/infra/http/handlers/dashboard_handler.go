package handlers

import (
	"context"
	"net/http"

	"github.com/xavierca1/lead-orchestrator/internal/usecase"
)

type DashboardHandler struct {
	views *usecase.LeadViews
}

func NewDashboardHandler(views *usecase.LeadViews) *DashboardHandler {
	return &DashboardHandler{views: views}
}

// Stats is computed locally from the lead collection unless source=backend.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	load := h.views.Dashboard
	if r.URL.Query().Get("source") == "backend" {
		load = h.views.BackendDashboard
	}

	stats, err := load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, stats)
}

// Refresher forces the lead collection to be re-fetched.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type RefreshHandler struct {
	refresher Refresher
}

func NewRefreshHandler(refresher Refresher) *RefreshHandler {
	return &RefreshHandler{refresher: refresher}
}

func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.refresher.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "refreshed"})
}
