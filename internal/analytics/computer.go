package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"districtpulse/internal/closing"
	"districtpulse/pkg/contracts/domain"
)

// maxSnapshotDriftDays bounds how far a nearest-match snapshot may sit
// from the requested date. Without the bound, a lone snapshot could
// resolve as both the current and the previous-year observation and
// produce a spurious zero-change comparison.
const maxSnapshotDriftDays = 180

// Computer orchestrates all per-district analytics for one snapshot run.
type Computer struct {
	health        *HealthAnalyzer
	distinguished *DistinguishedAnalyzer
	logger        *slog.Logger
}

// NewComputer creates an analytics computer.
func NewComputer(logger *slog.Logger) *Computer {
	if logger == nil {
		logger = slog.Default()
	}
	health := NewHealthAnalyzer()
	return &Computer{
		health:        health,
		distinguished: NewDistinguishedAnalyzer(health),
		logger:        logger.With(slog.String("component", "analytics_computer")),
	}
}

// Compute derives the full analytics artifact for one district from its
// date-ordered snapshots (oldest first, optionally spanning two program
// years) and an optional precomputed all-districts ranking artifact.
// currentID names the snapshot the artifact describes; it need not be the
// newest entry when a run replays an older date. The ranking may be nil;
// dependent outputs degrade to explicit absence.
func (c *Computer) Compute(ctx context.Context, districtID string, snapshots []domain.DistrictSnapshot, currentID string, artifact *domain.RankingArtifact) (*domain.DistrictAnalytics, error) {
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("no snapshots for district %s", districtID)
	}

	var current domain.DistrictSnapshot
	found := false
	for i := range snapshots {
		if snapshots[i].SnapshotID == currentID {
			current = snapshots[i]
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("snapshot %s missing from district %s history", currentID, districtID)
	}
	c.logger.DebugContext(ctx, "computing district analytics",
		slog.String("district_id", districtID),
		slog.String("snapshot_id", current.SnapshotID),
		slog.Int("history", len(snapshots)))

	out := &domain.DistrictAnalytics{
		DistrictID: districtID,
		SnapshotID: current.SnapshotID,

		MembershipTrend: districtTrend(snapshots, func(s domain.DistrictStatistics) float64 { return float64(s.TotalMembers) }),
		PaymentsTrend:   districtTrend(snapshots, func(s domain.DistrictStatistics) float64 { return float64(s.TotalPayments) }),
		ClubCountTrend:  districtTrend(snapshots, func(s domain.DistrictStatistics) float64 { return float64(s.PaidClubs) }),

		ClubHealth:      c.health.Summarize(current.Clubs),
		VulnerableClubs: c.health.VulnerableClubs(current.Clubs),
		ClubTrends:      c.health.ClubTrends(snapshots),
		Distinguished:   c.distinguished.Project(current.Clubs, current.SnapshotID),
		YearOverYear:    c.yearOverYear(current, snapshots),
		Ranking:         artifact.ForDistrict(districtID),
	}
	out.Targets = ComputeTargets(out.Ranking, current.Statistics)
	out.Insights = c.insights(out)
	return out, nil
}

// FindSnapshotForDate resolves which snapshot should represent target:
// an exact date match wins unconditionally; otherwise the latest snapshot
// in target's calendar year; otherwise the nearest snapshot by absolute
// day difference, accepted only within maxSnapshotDriftDays. Returns nil
// when nothing qualifies.
func FindSnapshotForDate(snapshots []domain.DistrictSnapshot, target time.Time) *domain.DistrictSnapshot {
	var sameYearLatest *domain.DistrictSnapshot
	var sameYearLatestDate time.Time
	var nearest *domain.DistrictSnapshot
	nearestDiff := time.Duration(1<<63 - 1)

	for i := range snapshots {
		snap := &snapshots[i]
		date, err := time.Parse(closing.DateLayout, snap.SnapshotID)
		if err != nil {
			continue
		}
		if date.Equal(target) {
			return snap
		}
		if date.Year() == target.Year() {
			if sameYearLatest == nil || date.After(sameYearLatestDate) {
				sameYearLatest = snap
				sameYearLatestDate = date
			}
		}
		diff := target.Sub(date)
		if diff < 0 {
			diff = -diff
		}
		if diff < nearestDiff {
			nearest = snap
			nearestDiff = diff
		}
	}

	if sameYearLatest != nil {
		return sameYearLatest
	}
	if nearest != nil && nearestDiff <= maxSnapshotDriftDays*24*time.Hour {
		return nearest
	}
	return nil
}

// yearOverYear compares the current snapshot against the previous program
// year. Candidates are restricted to snapshots of the previous program
// year and resolved against the current date, so a snapshot can never
// stand in for both sides of the comparison. Without a resolvable
// previous-year snapshot the result carries DataAvailable=false and no
// metrics.
func (c *Computer) yearOverYear(current domain.DistrictSnapshot, snapshots []domain.DistrictSnapshot) domain.YearOverYearComparison {
	none := domain.YearOverYearComparison{DataAvailable: false}

	currentDate, err := time.Parse(closing.DateLayout, current.SnapshotID)
	if err != nil {
		return none
	}
	previousYear := domain.ProgramYearOf(currentDate) - 1

	var candidates []domain.DistrictSnapshot
	for _, snap := range snapshots {
		date, err := time.Parse(closing.DateLayout, snap.SnapshotID)
		if err != nil {
			continue
		}
		if previousYear.Contains(date) {
			candidates = append(candidates, snap)
		}
	}

	previous := FindSnapshotForDate(candidates, currentDate)
	if previous == nil || previous.SnapshotID == current.SnapshotID {
		return none
	}

	cur, prev := current.Statistics, previous.Statistics
	return domain.YearOverYearComparison{
		DataAvailable: true,
		CurrentDate:   current.SnapshotID,
		PreviousDate:  previous.SnapshotID,

		Membership:         yoyMetric(cur.TotalMembers, prev.TotalMembers),
		PaidClubs:          yoyMetric(cur.PaidClubs, prev.PaidClubs),
		Payments:           yoyMetric(cur.TotalPayments, prev.TotalPayments),
		DistinguishedClubs: yoyMetric(cur.DistinguishedClubs, prev.DistinguishedClubs),
	}
}

func yoyMetric(current, previous int) *domain.YoYMetric {
	m := &domain.YoYMetric{
		Current:  float64(current),
		Previous: float64(previous),
		Change:   float64(current - previous),
	}
	// A zero previous value has no meaningful percentage; leaving the
	// field unset keeps it distinguishable from a real 0% change.
	if previous != 0 {
		pct := m.Change / float64(previous) * 100
		m.PercentageChange = &pct
	}
	return m
}

func districtTrend(snapshots []domain.DistrictSnapshot, metric func(domain.DistrictStatistics) float64) []domain.TrendPoint {
	points := make([]domain.TrendPoint, 0, len(snapshots))
	for _, snap := range snapshots {
		points = append(points, domain.TrendPoint{
			Date:  snap.SnapshotID,
			Value: metric(snap.Statistics),
		})
	}
	return points
}

// insights renders leadership-facing observations from the computed
// artifact.
func (c *Computer) insights(a *domain.DistrictAnalytics) []string {
	var out []string

	if n := len(a.ClubHealth.InterventionRequired); n > 0 {
		out = append(out, fmt.Sprintf("%d club(s) need immediate intervention", n))
	}
	if n := len(a.ClubHealth.Vulnerable); n > 0 {
		out = append(out, fmt.Sprintf("%d club(s) are vulnerable and worth a coach visit", n))
	}
	if a.Distinguished.ProjectedDistinguished > a.Distinguished.DistinguishedCount+a.Distinguished.SelectCount+a.Distinguished.PresidentsCount+a.Distinguished.SmedleyCount {
		out = append(out, "thriving clubs outnumber current distinguished clubs; year-end recognition is trending up")
	}
	if a.YearOverYear.DataAvailable && a.YearOverYear.Membership != nil && a.YearOverYear.Membership.Change < 0 {
		out = append(out, "membership is down year over year")
	}
	if a.Ranking != nil && a.Ranking.OverallRank == 1 {
		out = append(out, "district leads all peers in overall standing")
	}
	return out
}
