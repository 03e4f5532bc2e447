package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"districtpulse/internal/config"
	apierrors "districtpulse/internal/errors"
	"districtpulse/internal/operations"
	"districtpulse/internal/services"
	"districtpulse/internal/snapshot"
	"districtpulse/internal/timeseries"
	"districtpulse/pkg/contracts/domain"
)

func testRouter(t *testing.T, seed bool) chi.Router {
	t.Helper()
	dir := t.TempDir()
	paths, err := config.NewPaths(config.PathsConfig{DataDir: dir, LogsDir: filepath.Join(dir, "logs")})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	store := snapshot.NewStore(paths, nil)
	index := timeseries.NewService(paths, nil)

	if seed {
		manager, err := operations.NewManager(operations.ManagerDeps{
			Store: store, Index: index, Paths: paths,
		})
		require.NoError(t, err)
		_, err = manager.Execute(context.Background(), operations.RunRequest{
			CollectionDate: time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC),
			Districts: []operations.DistrictInput{
				{Statistics: domain.DistrictStatistics{
					DistrictID: "42", AsOfDate: "2024-08-31",
					TotalClubs: 100, PaidClubs: 100, ClubBase: 98,
					TotalMembers: 2000, MembershipBase: 1900,
					TotalPayments: 4000, PaymentBase: 3800,
					DCPGoalsAchieved: 300, DistinguishedClubs: 25,
				}},
			},
		})
		require.NoError(t, err)
	}

	logger := slog.Default()
	service := services.NewDistrictService(store, index, paths, logger)
	errorHandler := apierrors.NewHandler(logger)

	r := chi.NewRouter()
	r.Mount("/api/v1/districts", NewDistrictHandler(service, logger, errorHandler).Routes())
	r.Mount("/api/v1/snapshots", NewSnapshotHandler(service, logger, errorHandler).Routes())
	r.Mount("/api/v1/health", NewHealthHandler(service).Routes())
	return r
}

func doRequest(t *testing.T, router chi.Router, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListDistrictsEndpoint(t *testing.T) {
	router := testRouter(t, true)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/districts/")
	require.Equal(t, http.StatusOK, rec.Code)

	var list services.DistrictList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "2024-08-31", list.SnapshotID)
	assert.Equal(t, []string{"42"}, list.Districts)
}

func TestListDistrictsEmptyStoreIs404(t *testing.T) {
	router := testRouter(t, false)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/districts/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAnalyticsEndpoint(t *testing.T) {
	router := testRouter(t, true)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/districts/42/analytics")
	require.Equal(t, http.StatusOK, rec.Code)

	var artifact domain.DistrictAnalytics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artifact))
	assert.Equal(t, "42", artifact.DistrictID)
	require.NotNil(t, artifact.Ranking)
	assert.Equal(t, 1, artifact.Ranking.OverallRank)
}

func TestGetAnalyticsUnknownDistrictIs404(t *testing.T) {
	router := testRouter(t, true)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/districts/99/analytics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAnalyticsDateShapedIDIs400(t *testing.T) {
	router := testRouter(t, true)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/districts/2024-08-31/analytics")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTrendEndpoint(t *testing.T) {
	router := testRouter(t, true)

	rec := doRequest(t, router, http.MethodGet,
		"/api/v1/districts/42/trend?start=2024-07-01&end=2024-09-30")
	require.Equal(t, http.StatusOK, rec.Code)

	var points []domain.TimeSeriesDataPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.Equal(t, "2024-08-31", points[0].Date)
}

func TestGetTrendMissingParamsIs400(t *testing.T) {
	router := testRouter(t, true)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/districts/42/trend")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProgramYearEndpoint(t *testing.T) {
	router := testRouter(t, true)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/districts/42/program-year/2024")
	require.Equal(t, http.StatusOK, rec.Code)

	var points []domain.TimeSeriesDataPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	assert.Len(t, points, 1)
}

func TestSnapshotEndpoints(t *testing.T) {
	router := testRouter(t, true)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/snapshots/")
	require.Equal(t, http.StatusOK, rec.Code)
	var metas []domain.SnapshotMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metas))
	require.Len(t, metas, 1)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/snapshots/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/snapshots/2024-08-31")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/snapshots/1999-01-31")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSnapshotEndpointCascades(t *testing.T) {
	router := testRouter(t, true)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/snapshots/2024-08-31")
	require.Equal(t, http.StatusOK, rec.Code)

	var result services.DeleteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Found)
	assert.Equal(t, 1, result.TimeSeriesRemovals)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/snapshots/2024-08-31")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/districts/42/program-year/2024")
	require.Equal(t, http.StatusOK, rec.Code)
	var points []domain.TimeSeriesDataPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	assert.Empty(t, points)
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t, true)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health/")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "2024-08-31", resp["latest_snapshot"])
}
