package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/lead-orchestrator/internal/usecase"
)

const defaultWaitTimeout = 25 * time.Second

type ActionHandler struct {
	dispatcher  *usecase.Dispatcher
	waitTimeout time.Duration
}

func NewActionHandler(dispatcher *usecase.Dispatcher) *ActionHandler {
	return &ActionHandler{dispatcher: dispatcher, waitTimeout: defaultWaitTimeout}
}

// GetAction answers GET /actions/{handleId}. With wait=1 it long-polls until
// the handle settles or the wait timeout passes.
func (h *ActionHandler) GetAction(w http.ResponseWriter, r *http.Request) {
	handle, ok := h.dispatcher.Handle(chi.URLParam(r, "handleId"))
	if !ok {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Message: "Action not found"})
		return
	}

	if r.URL.Query().Get("wait") == "1" {
		timer := time.NewTimer(h.waitTimeout)
		defer timer.Stop()
		// an unsettled handle is still a valid answer; the client polls again
		select {
		case <-handle.Done():
		case <-timer.C:
		case <-r.Context().Done():
		}
	}

	rec := handle.Record()
	writeJSON(w, http.StatusOK, Response{
		Success: handle.Err() == nil,
		Message: rec.Reason,
		Data:    rec,
	})
}
