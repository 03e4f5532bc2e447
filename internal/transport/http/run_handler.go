package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"districtpulse/internal/closing"
	apierrors "districtpulse/internal/errors"
	"districtpulse/internal/operations"
	"districtpulse/pkg/contracts/domain"
)

// RunHandler triggers snapshot pipeline runs over HTTP. Runs execute
// synchronously; progress streams to websocket clients while the
// request is in flight.
type RunHandler struct {
	manager      *operations.Manager
	timeout      time.Duration
	logger       *slog.Logger
	errorHandler *apierrors.Handler
}

// NewRunHandler creates a run handler. A non-positive timeout disables
// the per-run deadline.
func NewRunHandler(manager *operations.Manager, timeout time.Duration, logger *slog.Logger, errorHandler *apierrors.Handler) *RunHandler {
	return &RunHandler{
		manager:      manager,
		timeout:      timeout,
		logger:       logger.With(slog.String("component", "run_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the run routes.
func (h *RunHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.StartRun)
	return r
}

type runRequest struct {
	CollectionDate string              `json:"collection_date"`
	Sidecar        *closing.PeriodMeta `json:"sidecar,omitempty"`
	Districts      []runDistrict       `json:"districts"`
}

type runDistrict struct {
	Statistics domain.DistrictStatistics `json:"statistics"`
	Clubs      []domain.ClubRecord       `json:"clubs"`
}

// StartRun handles POST /api/v1/runs. The response is the finished run
// record, including per-district failures for partial runs.
func (h *RunHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidationField("body", "malformed run request"))
		return
	}

	collected, err := time.Parse(closing.DateLayout, req.CollectionDate)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidationField("collection_date", "must be a YYYY-MM-DD date"))
		return
	}
	if len(req.Districts) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidationField("districts", "at least one district payload is required"))
		return
	}

	opReq := operations.RunRequest{
		CollectionDate: collected,
		Sidecar:        req.Sidecar,
	}
	for _, d := range req.Districts {
		opReq.Districts = append(opReq.Districts, operations.DistrictInput{
			Statistics: d.Statistics,
			Clubs:      d.Clubs,
		})
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	run, runErr := h.manager.Execute(ctx, opReq)
	if runErr != nil && run == nil {
		h.errorHandler.HandleError(w, r, runErr)
		return
	}
	if runErr != nil {
		h.logger.WarnContext(ctx, "pipeline run failed",
			slog.String("run_id", run.ID),
			slog.String("error", runErr.Error()))
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, run)
}
