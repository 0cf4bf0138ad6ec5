package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
	"github.com/xavierca1/lead-orchestrator/internal/usecase"
)

type LeadHandler struct {
	views      *usecase.LeadViews
	dispatcher *usecase.Dispatcher
}

func NewLeadHandler(views *usecase.LeadViews, dispatcher *usecase.Dispatcher) *LeadHandler {
	return &LeadHandler{views: views, dispatcher: dispatcher}
}

// ListLeads answers GET /leads with the filtered collection, newest first.
func (h *LeadHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entity.LeadFilter{
		Niche:        q.Get("niche"),
		Location:     q.Get("location"),
		BusinessType: q.Get("business_type"),
		Status:       q.Get("status"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, &usecase.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		f.Limit = limit
	}

	leads, err := h.views.Leads(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"count": len(leads), "leads": leads})
}

func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	id, err := leadIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	detail, err := h.views.Detail(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, detail)
}

func (h *LeadHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	id, err := leadIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var includeWebsite *bool
	if raw := r.URL.Query().Get("include_website"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, &usecase.ValidationError{Field: "include_website", Message: "must be true or false"})
			return
		}
		includeWebsite = &v
	}

	writeDispatch(w, h.dispatcher.SendEmail(r.Context(), id, includeWebsite))
}

func (h *LeadHandler) CreateWebsite(w http.ResponseWriter, r *http.Request) {
	id, err := leadIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeDispatch(w, h.dispatcher.CreateWebsite(r.Context(), id, r.URL.Query().Get("template_type")))
}

func (h *LeadHandler) StartSearch(w http.ResponseWriter, r *http.Request) {
	var q entity.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "Invalid JSON"})
		return
	}

	writeDispatch(w, h.dispatcher.StartSearch(r.Context(), q))
}

// writeDispatch answers 202 with the handle while the call runs, or the
// mapped error status once it settled with an error.
func writeDispatch(w http.ResponseWriter, handle *usecase.Handle) {
	rec := handle.Record()
	if rec.Status.Settled() && handle.Err() != nil {
		writeJSON(w, statusFor(handle.Err()), Response{Success: false, Message: rec.Reason, Data: rec})
		return
	}

	w.Header().Set("Location", "/actions/"+rec.ID)
	writeJSON(w, http.StatusAccepted, Response{Success: true, Message: "accepted", Data: rec})
}
