package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "districtpulse/internal/errors"
	"districtpulse/internal/services"
	"districtpulse/internal/snapshot"
	"districtpulse/pkg/contracts/domain"
)

// SnapshotHandler serves snapshot metadata and the cascading delete.
type SnapshotHandler struct {
	service      *services.DistrictService
	logger       *slog.Logger
	errorHandler *apierrors.Handler
}

// NewSnapshotHandler creates a snapshot handler.
func NewSnapshotHandler(service *services.DistrictService, logger *slog.Logger, errorHandler *apierrors.Handler) *SnapshotHandler {
	return &SnapshotHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "snapshot_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the snapshot routes.
func (h *SnapshotHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListSnapshots)
	r.Get("/latest", h.GetLatest)
	r.Get("/{snapshotID}", h.GetSnapshot)
	r.Delete("/{snapshotID}", h.DeleteSnapshot)
	return r
}

// ListSnapshots handles GET /api/v1/snapshots?status=&from=&to=.
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	filter := snapshot.Filter{
		Status: domain.SnapshotStatus(r.URL.Query().Get("status")),
		From:   r.URL.Query().Get("from"),
		To:     r.URL.Query().Get("to"),
	}

	metas, err := h.service.ListSnapshots(r.Context(), filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if metas == nil {
		metas = []domain.SnapshotMetadata{}
	}
	render.JSON(w, r, metas)
}

// GetLatest handles GET /api/v1/snapshots/latest.
func (h *SnapshotHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.GetLatestSnapshot(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if meta == nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("snapshot"))
		return
	}
	render.JSON(w, r, meta)
}

// GetSnapshot handles GET /api/v1/snapshots/{snapshotID}.
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.GetSnapshot(r.Context(), chi.URLParam(r, "snapshotID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if meta == nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("snapshot"))
		return
	}
	render.JSON(w, r, meta)
}

// DeleteSnapshot handles DELETE /api/v1/snapshots/{snapshotID}. The delete
// cascades into time-series partitions and artifacts.
func (h *SnapshotHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "snapshotID")

	result, err := h.service.DeleteSnapshot(r.Context(), snapshotID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if !result.Found {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("snapshot"))
		return
	}

	h.logger.InfoContext(r.Context(), "snapshot deleted via API",
		slog.String("snapshot_id", snapshotID))
	render.JSON(w, r, result)
}
