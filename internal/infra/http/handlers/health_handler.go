package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xavierca1/lead-orchestrator/internal/infra/integration/leadapi"
)

const (
	Version       = "1.0.0"
	probeTimeout  = 3 * time.Second
	statusHealthy = "healthy"
	statusOff     = "not configured"
)

// BackendProbe is the leads backend health endpoint.
type BackendProbe interface {
	Health(ctx context.Context) (*leadapi.HealthResult, error)
}

// BrokerProbe reports whether the AMQP connection is usable.
type BrokerProbe interface {
	Healthy() bool
}

type HealthHandler struct {
	Backend   BackendProbe
	DB        *sql.DB
	Broker    BrokerProbe
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(backend BackendProbe, db *sql.DB, broker BrokerProbe) *HealthHandler {
	return &HealthHandler{
		Backend:   backend,
		DB:        db,
		Broker:    broker,
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	deps := make(map[string]string)

	if res, err := h.Backend.Health(ctx); err != nil {
		deps["leads_api"] = fmt.Sprintf("unhealthy: %v", err)
	} else if res.Status != "" && res.Status != statusHealthy {
		deps["leads_api"] = "unhealthy: " + res.Status
	} else {
		deps["leads_api"] = statusHealthy
	}

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			deps["database"] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			deps["database"] = statusHealthy
		}
	} else {
		deps["database"] = statusOff
	}

	if h.Broker != nil {
		if !h.Broker.Healthy() {
			deps["rabbitmq"] = "unhealthy: connection closed"
		} else {
			deps["rabbitmq"] = statusHealthy
		}
	} else {
		deps["rabbitmq"] = statusOff
	}

	status := statusHealthy
	for _, v := range deps {
		if v != statusHealthy && v != statusOff {
			status = "degraded"
			break
		}
	}

	response := HealthResponse{
		Status:       status,
		Version:      Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "degraded" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}
