package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"districtpulse/internal/infrastructure"
	"districtpulse/internal/services"
)

// HealthHandler reports service liveness and data freshness.
type HealthHandler struct {
	service   *services.DistrictService
	startedAt time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(service *services.DistrictService) *HealthHandler {
	return &HealthHandler{service: service, startedAt: time.Now()}
}

// Routes returns the health routes.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetHealth)
	return r
}

// healthResponse is the health payload. LatestSnapshot is empty until the
// first successful run.
type healthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	LatestSnapshot string `json:"latest_snapshot,omitempty"`
}

// GetHealth handles GET /api/v1/health.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "healthy",
		Version:       infrastructure.ServiceVersion,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	if meta, err := h.service.GetLatestSnapshot(r.Context()); err == nil && meta != nil {
		resp.LatestSnapshot = meta.ID
	}
	render.JSON(w, r, resp)
}
