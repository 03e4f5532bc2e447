// Package exporter renders stored analytics artifacts into report files
// under <data>/reports/: one Excel workbook per district plus CSV mirrors
// of the tabular sheets.
package exporter

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"districtpulse/internal/config"
	"districtpulse/pkg/contracts/domain"
)

const (
	sheetSummary = "Summary"
	sheetClubs   = "Club Health"
	sheetTrends  = "Trends"
)

// WorkbookExporter writes per-district Excel reports.
type WorkbookExporter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewWorkbookExporter creates a workbook exporter.
func NewWorkbookExporter(paths *config.Paths, logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{
		paths:  paths,
		logger: logger.With(slog.String("component", "workbook_exporter")),
	}
}

// Export writes one district's workbook and returns its path. The file
// name carries the district and snapshot so reports never overwrite
// across dates.
func (e *WorkbookExporter) Export(analytics *domain.DistrictAnalytics, snap *domain.DistrictSnapshot) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeSummary(f, analytics, snap); err != nil {
		return "", err
	}
	if err := e.writeClubHealth(f, analytics, snap); err != nil {
		return "", err
	}
	if err := e.writeTrends(f, analytics); err != nil {
		return "", err
	}
	f.DeleteSheet("Sheet1")

	path := e.paths.ReportPath(fmt.Sprintf("district_%s_%s.xlsx", analytics.DistrictID, analytics.SnapshotID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info("district workbook exported",
		slog.String("district_id", analytics.DistrictID),
		slog.String("snapshot_id", analytics.SnapshotID),
		slog.String("path", path))
	return path, nil
}

func (e *WorkbookExporter) writeSummary(f *excelize.File, analytics *domain.DistrictAnalytics, snap *domain.DistrictSnapshot) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	stats := snap.Statistics
	rows := [][]interface{}{
		{"District", analytics.DistrictID},
		{"Snapshot", analytics.SnapshotID},
		{"Total Clubs", stats.TotalClubs},
		{"Paid Clubs", stats.PaidClubs},
		{"Club Base", stats.ClubBase},
		{"Total Members", stats.TotalMembers},
		{"Membership Base", stats.MembershipBase},
		{"Total Payments", stats.TotalPayments},
		{"Distinguished Clubs", stats.DistinguishedClubs},
		{"Projected Distinguished", analytics.Distinguished.ProjectedDistinguished},
	}
	if analytics.Ranking != nil {
		rows = append(rows,
			[]interface{}{"Overall Rank", analytics.Ranking.OverallRank},
			[]interface{}{"Aggregate Score", analytics.Ranking.AggregateScore},
		)
	}
	if analytics.YearOverYear.DataAvailable && analytics.YearOverYear.Membership != nil {
		rows = append(rows, []interface{}{"Membership YoY Change", analytics.YearOverYear.Membership.Change})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}

func (e *WorkbookExporter) writeClubHealth(f *excelize.File, analytics *domain.DistrictAnalytics, snap *domain.DistrictSnapshot) error {
	if _, err := f.NewSheet(sheetClubs); err != nil {
		return fmt.Errorf("create club sheet: %w", err)
	}

	header := []interface{}{"Club ID", "Club Name", "Members", "Net Growth", "Goals Met", "Health", "Risk Factors"}
	if err := f.SetSheetRow(sheetClubs, "A1", &header); err != nil {
		return err
	}

	healthByClub := make(map[string]domain.HealthStatus)
	for _, id := range analytics.ClubHealth.Thriving {
		healthByClub[id] = domain.HealthThriving
	}
	for _, id := range analytics.ClubHealth.Stable {
		healthByClub[id] = domain.HealthStable
	}
	for _, id := range analytics.ClubHealth.Vulnerable {
		healthByClub[id] = domain.HealthVulnerable
	}
	for _, id := range analytics.ClubHealth.InterventionRequired {
		healthByClub[id] = domain.HealthInterventionRequired
	}

	risksByClub := make(map[string][]string)
	for _, v := range analytics.VulnerableClubs {
		risksByClub[v.ClubID] = v.RiskFactors
	}

	for i, club := range snap.Clubs {
		row := []interface{}{
			club.ClubID,
			club.ClubName,
			club.ActiveMembers,
			club.NetGrowth(),
			club.GoalsMet,
			string(healthByClub[club.ClubID]),
			joinFactors(risksByClub[club.ClubID]),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetClubs, cell, &row); err != nil {
			return fmt.Errorf("write club row: %w", err)
		}
	}
	return nil
}

func (e *WorkbookExporter) writeTrends(f *excelize.File, analytics *domain.DistrictAnalytics) error {
	if _, err := f.NewSheet(sheetTrends); err != nil {
		return fmt.Errorf("create trends sheet: %w", err)
	}

	header := []interface{}{"Date", "Members", "Payments", "Paid Clubs"}
	if err := f.SetSheetRow(sheetTrends, "A1", &header); err != nil {
		return err
	}

	payments := trendByDate(analytics.PaymentsTrend)
	clubs := trendByDate(analytics.ClubCountTrend)
	for i, p := range analytics.MembershipTrend {
		row := []interface{}{p.Date, p.Value, payments[p.Date], clubs[p.Date]}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetTrends, cell, &row); err != nil {
			return fmt.Errorf("write trend row: %w", err)
		}
	}
	return nil
}

func trendByDate(points []domain.TrendPoint) map[string]float64 {
	out := make(map[string]float64, len(points))
	for _, p := range points {
		out[p.Date] = p.Value
	}
	return out
}

func joinFactors(factors []string) string {
	out := ""
	for i, f := range factors {
		if i > 0 {
			out += "; "
		}
		out += f
	}
	return out
}
