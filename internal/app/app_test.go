package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"districtpulse/internal/operations"
	"districtpulse/pkg/contracts/domain"
)

func testApplication(t *testing.T) *Application {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("DP_PATHS_DATA_DIR", dir)
	t.Setenv("DP_PATHS_LOGS_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DP_LOGGING_OUTPUT", "console")
	t.Setenv("DP_CONFIG_FILE", filepath.Join(dir, "nonexistent.yaml"))

	application, err := NewApplication()
	require.NoError(t, err)
	return application
}

func runPayload(districtID string) map[string]any {
	return map[string]any{
		"collection_date": "2024-08-31",
		"districts": []map[string]any{
			{
				"statistics": domain.DistrictStatistics{
					DistrictID:         districtID,
					AsOfDate:           "2024-08-31",
					TotalClubs:         100,
					PaidClubs:          100,
					ClubBase:           98,
					TotalMembers:       2000,
					MembershipBase:     1900,
					TotalPayments:      4000,
					PaymentBase:        3800,
					DCPGoalsAchieved:   300,
					DistinguishedClubs: 25,
				},
				"clubs": []domain.ClubRecord{
					{ClubID: districtID + "-c1", ClubName: "Club One", ActiveMembers: 25, MembershipBase: 20, GoalsMet: 6, DCPCheckpointMet: true, CSPSubmitted: true},
				},
			},
		},
	}
}

func TestNewApplicationWiresComponents(t *testing.T) {
	application := testApplication(t)

	assert.NotNil(t, application.Router)
	assert.NotNil(t, application.Server)
	assert.NotNil(t, application.Manager)
	assert.NotNil(t, application.Hub)
	assert.Equal(t, fmt.Sprintf(":%d", application.Config.Server.Port), application.Server.Addr)
}

func TestHealthEndpoint(t *testing.T) {
	application := testApplication(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRunThenListDistricts(t *testing.T) {
	application := testApplication(t)
	application.Hub.Start()
	defer application.Hub.Shutdown()

	payload, err := json.Marshal(runPayload("42"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var run operations.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, operations.RunStatusComplete, run.Status)
	assert.Equal(t, "2024-08-31", run.SnapshotID)

	rec = httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/districts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "42")
}

func TestRunRejectsMalformedDate(t *testing.T) {
	application := testApplication(t)

	body := []byte(`{"collection_date":"August 31","districts":[{}]}`)
	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpointMounted(t *testing.T) {
	application := testApplication(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
