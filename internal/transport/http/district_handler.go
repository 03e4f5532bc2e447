package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"districtpulse/internal/closing"
	apierrors "districtpulse/internal/errors"
	"districtpulse/internal/services"
	"districtpulse/pkg/contracts/domain"
)

// DistrictHandler serves district listings, analytics artifacts, and
// trend queries.
type DistrictHandler struct {
	service      *services.DistrictService
	logger       *slog.Logger
	errorHandler *apierrors.Handler
}

// NewDistrictHandler creates a district handler.
func NewDistrictHandler(service *services.DistrictService, logger *slog.Logger, errorHandler *apierrors.Handler) *DistrictHandler {
	return &DistrictHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "district_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the district routes.
func (h *DistrictHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListDistricts)
	r.Route("/{districtID}", func(r chi.Router) {
		r.Get("/analytics", h.GetAnalytics)
		r.Get("/trend", h.GetTrend)
		r.Get("/program-year/{year}", h.GetProgramYear)
	})
	return r
}

// ListDistricts handles GET /api/v1/districts.
func (h *DistrictHandler) ListDistricts(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListDistricts(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if list == nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("snapshot"))
		return
	}
	render.JSON(w, r, list)
}

// GetAnalytics handles GET /api/v1/districts/{districtID}/analytics.
// An optional ?snapshot= query pins a historical snapshot.
func (h *DistrictHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	districtID := chi.URLParam(r, "districtID")
	snapshotID := r.URL.Query().Get("snapshot")

	artifact, err := h.service.GetAnalytics(r.Context(), districtID, snapshotID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if artifact == nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("district analytics"))
		return
	}
	render.JSON(w, r, artifact)
}

// GetTrend handles GET /api/v1/districts/{districtID}/trend?start=&end=.
func (h *DistrictHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	districtID := chi.URLParam(r, "districtID")

	start, err := parseDateParam(r, "start")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	points, err := h.service.GetTrend(r.Context(), districtID, start, end)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if points == nil {
		points = []domain.TimeSeriesDataPoint{}
	}
	render.JSON(w, r, points)
}

// GetProgramYear handles GET /api/v1/districts/{districtID}/program-year/{year},
// where {year} is the starting calendar year of the program year.
func (h *DistrictHandler) GetProgramYear(w http.ResponseWriter, r *http.Request) {
	districtID := chi.URLParam(r, "districtID")

	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidationField("year", "must be a calendar year"))
		return
	}

	points, err := h.service.GetProgramYearData(r.Context(), districtID, domain.ProgramYear(year))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if points == nil {
		points = []domain.TimeSeriesDataPoint{}
	}
	render.JSON(w, r, points)
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, apierrors.ErrValidationField(name, "required date parameter")
	}
	t, err := time.Parse(closing.DateLayout, raw)
	if err != nil {
		return time.Time{}, apierrors.ErrValidationField(name, "must be a YYYY-MM-DD date")
	}
	return t, nil
}
