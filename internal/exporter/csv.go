package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"districtpulse/internal/config"
	"districtpulse/pkg/contracts/domain"
)

// CSVWriter mirrors the tabular report sheets as CSV files.
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteSimpleCSV writes headers plus records to filename under the
// reports directory and returns the full path.
func (w *CSVWriter) WriteSimpleCSV(filename string, headers []string, records [][]string) (string, error) {
	path := w.paths.ReportPath(filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(headers); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range records {
		if err := cw.Write(record); err != nil {
			return "", fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return path, nil
}

// ExportTrends writes a district's metric trends as CSV.
func (w *CSVWriter) ExportTrends(analytics *domain.DistrictAnalytics) (string, error) {
	payments := trendByDate(analytics.PaymentsTrend)
	clubs := trendByDate(analytics.ClubCountTrend)

	records := make([][]string, 0, len(analytics.MembershipTrend))
	for _, p := range analytics.MembershipTrend {
		records = append(records, []string{
			p.Date,
			formatFloat(p.Value),
			formatFloat(payments[p.Date]),
			formatFloat(clubs[p.Date]),
		})
	}

	filename := fmt.Sprintf("district_%s_%s_trends.csv", analytics.DistrictID, analytics.SnapshotID)
	return w.WriteSimpleCSV(filename, []string{"date", "members", "payments", "paid_clubs"}, records)
}

// ExportVulnerableClubs writes the vulnerable-club list as CSV.
func (w *CSVWriter) ExportVulnerableClubs(analytics *domain.DistrictAnalytics) (string, error) {
	records := make([][]string, 0, len(analytics.VulnerableClubs))
	for _, v := range analytics.VulnerableClubs {
		records = append(records, []string{
			v.ClubID,
			v.ClubName,
			string(v.Health),
			strconv.Itoa(v.Members),
			strconv.Itoa(v.NetGrowth),
			joinFactors(v.RiskFactors),
		})
	}

	filename := fmt.Sprintf("district_%s_%s_vulnerable.csv", analytics.DistrictID, analytics.SnapshotID)
	headers := []string{"club_id", "club_name", "health", "members", "net_growth", "risk_factors"}
	return w.WriteSimpleCSV(filename, headers, records)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
