package ingest

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"districtpulse/internal/closing"
)

func testLoader() *Loader {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLoader(closing.NewDetector(logger), 3, logger)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

const districtCSV = `District,As of Date,Total Clubs,Paid Clubs,Club Base,Total Members,Membership Base,Total Payments,Payment Base,DCP Goals Achieved,Distinguished Clubs
42,2024-08-31,100,98,95,"2,000","1,900","4,000","3,800",300,25
7,2024-08-31,80,78,76,1600,1550,3200,3100,240,20
`

const clubCSV = `Club Number,Club Name,Division,Area,Active Members,Mem. Base,Goals Met,On Track,Club Success Plan
1001,Morning Owls,A,1,25,20,6,Yes,Yes
1002,Late Risers,A,2,9,12,1,No,No
`

func TestLoadRunDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "districts.csv", districtCSV)
	writeFile(t, dir, "clubs_42.csv", clubCSV)

	inputs, sidecar, err := testLoader().LoadRunDirectory(dir)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Nil(t, sidecar)

	// Inputs sort by district id.
	assert.Equal(t, "42", inputs[0].Statistics.DistrictID)
	assert.Equal(t, "7", inputs[1].Statistics.DistrictID)

	stats := inputs[0].Statistics
	assert.Equal(t, 2000, stats.TotalMembers)
	assert.Equal(t, 3800, stats.PaymentBase)

	require.Len(t, inputs[0].Clubs, 2)
	club := inputs[0].Clubs[0]
	assert.Equal(t, "1001", club.ClubID)
	assert.Equal(t, "Morning Owls", club.ClubName)
	assert.True(t, club.DCPCheckpointMet)
	assert.True(t, club.CSPSubmitted)
	assert.False(t, inputs[0].Clubs[1].CSPSubmitted)

	// District 7 has no club export.
	assert.Empty(t, inputs[1].Clubs)
}

func TestLoadRunDirectoryDerivesCheckpointFromGoals(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "districts.csv", districtCSV)
	// Older exports carry no On Track column; the loader's goals-met
	// threshold of 3 decides the checkpoint.
	writeFile(t, dir, "clubs_42.csv", `Club Number,Club Name,Goals Met
1001,Morning Owls,6
1002,Late Risers,1
`)

	inputs, _, err := testLoader().LoadRunDirectory(dir)
	require.NoError(t, err)
	require.Len(t, inputs[0].Clubs, 2)
	assert.True(t, inputs[0].Clubs[0].DCPCheckpointMet)
	assert.False(t, inputs[0].Clubs[1].DCPCheckpointMet)
}

func TestLoadRunDirectoryReadsSidecar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "districts.csv", districtCSV)
	writeFile(t, dir, "closing.json", `{"is_closing_period":true,"data_month":"2024-08"}`)

	_, sidecar, err := testLoader().LoadRunDirectory(dir)
	require.NoError(t, err)
	require.NotNil(t, sidecar)
	assert.True(t, sidecar.IsClosingPeriod)
	assert.Equal(t, "2024-08", sidecar.DataMonth)
}

func TestLoadRunDirectoryMissingExport(t *testing.T) {
	_, _, err := testLoader().LoadRunDirectory(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "district export")
}

func TestLoadRunDirectorySkipsRowsWithoutID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "districts.csv", `District,As of Date,Total Clubs
,2024-08-31,10
42,2024-08-31,100
`)

	inputs, _, err := testLoader().LoadRunDirectory(dir)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "42", inputs[0].Statistics.DistrictID)
}

func TestLoadRunDirectoryEmptyExport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "districts.csv", "")

	_, _, err := testLoader().LoadRunDirectory(dir)
	require.Error(t, err)
}
