package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/lead-orchestrator/internal/infra/integration/leadapi"
	"github.com/xavierca1/lead-orchestrator/internal/usecase"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), Response{Success: false, Message: err.Error()})
}

// statusFor maps the error taxonomy onto HTTP. Backend 4xx answers keep their
// status so a missing lead stays a 404.
func statusFor(err error) int {
	switch usecase.KindOf(err) {
	case usecase.ErrKindValidation:
		return http.StatusBadRequest
	case usecase.ErrKindConflict:
		return http.StatusConflict
	case usecase.ErrKindBackend:
		var be *leadapi.BackendError
		if errors.As(err, &be) && be.StatusCode >= 400 && be.StatusCode < 500 {
			return be.StatusCode
		}
		return http.StatusBadGateway
	case usecase.ErrKindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func leadIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &usecase.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}
