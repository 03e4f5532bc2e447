package analytics

import (
	"sort"

	"districtpulse/pkg/contracts/domain"
)

// Membership thresholds used by classification. A club under
// interventionMembers with flat growth is in immediate danger; charter
// strength is the sustainable size the program asks clubs to hold.
const (
	interventionMembers = 12
	charterStrength     = 20
	interventionGrowth  = 3
	thrivingGrowth      = 3
)

// HealthAnalyzer classifies clubs and builds per-club trend arrays.
type HealthAnalyzer struct{}

// NewHealthAnalyzer creates a health analyzer.
func NewHealthAnalyzer() *HealthAnalyzer {
	return &HealthAnalyzer{}
}

// Classify assigns exactly one health status. Rules evaluate in order and
// the first match wins, so the four statuses partition any club set.
func (a *HealthAnalyzer) Classify(c domain.ClubRecord) domain.HealthStatus {
	growth := c.NetGrowth()

	if c.ActiveMembers < interventionMembers && growth < interventionGrowth {
		return domain.HealthInterventionRequired
	}

	sizeOK := c.ActiveMembers >= charterStrength || growth >= thrivingGrowth
	met := 0
	for _, ok := range []bool{sizeOK, c.DCPCheckpointMet, c.CSPSubmitted} {
		if ok {
			met++
		}
	}

	switch met {
	case 3:
		return domain.HealthThriving
	case 0:
		return domain.HealthStable
	default:
		return domain.HealthVulnerable
	}
}

// RiskFlags derives the risk factors for one club.
func (a *HealthAnalyzer) RiskFlags(c domain.ClubRecord) domain.RiskFlags {
	return domain.RiskFlags{
		LowMembership:       c.ActiveMembers < interventionMembers,
		DecliningMembership: c.NetGrowth() < 0,
		MissedCheckpoint:    !c.DCPCheckpointMet,
		NoSuccessPlan:       !c.CSPSubmitted,
	}
}

// DistinguishedLevel returns the highest recognition level the club has
// earned, checking the highest tier first.
func (a *HealthAnalyzer) DistinguishedLevel(c domain.ClubRecord) domain.DistinguishedLevel {
	growth := c.NetGrowth()
	switch {
	case c.GoalsMet >= 10 && c.ActiveMembers >= 25:
		return domain.LevelSmedley
	case c.GoalsMet >= 9 && c.ActiveMembers >= 20:
		return domain.LevelPresidents
	case c.GoalsMet >= 7 && (c.ActiveMembers >= 20 || growth >= 5):
		return domain.LevelSelect
	case c.GoalsMet >= 5 && (c.ActiveMembers >= 20 || growth >= 3):
		return domain.LevelDistinguished
	default:
		return domain.LevelNone
	}
}

// Summarize buckets every club of the current snapshot into its health
// classification. Bucket contents sort by club id for stable output.
func (a *HealthAnalyzer) Summarize(clubs []domain.ClubRecord) domain.ClubHealthSummary {
	var s domain.ClubHealthSummary
	for _, c := range clubs {
		switch a.Classify(c) {
		case domain.HealthThriving:
			s.Thriving = append(s.Thriving, c.ClubID)
		case domain.HealthStable:
			s.Stable = append(s.Stable, c.ClubID)
		case domain.HealthVulnerable:
			s.Vulnerable = append(s.Vulnerable, c.ClubID)
		case domain.HealthInterventionRequired:
			s.InterventionRequired = append(s.InterventionRequired, c.ClubID)
		}
	}
	sort.Strings(s.Thriving)
	sort.Strings(s.Stable)
	sort.Strings(s.Vulnerable)
	sort.Strings(s.InterventionRequired)
	return s
}

// VulnerableClubs lists every club classified vulnerable or
// intervention-required, with its risk factors rendered for display.
func (a *HealthAnalyzer) VulnerableClubs(clubs []domain.ClubRecord) []domain.VulnerableClub {
	var out []domain.VulnerableClub
	for _, c := range clubs {
		health := a.Classify(c)
		if health != domain.HealthVulnerable && health != domain.HealthInterventionRequired {
			continue
		}
		out = append(out, domain.VulnerableClub{
			ClubID:      c.ClubID,
			ClubName:    c.ClubName,
			Health:      health,
			Members:     c.ActiveMembers,
			NetGrowth:   c.NetGrowth(),
			RiskFactors: domain.FormatRiskFactors(a.RiskFlags(c)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClubID < out[j].ClubID })
	return out
}

// ClubTrends builds one trend entry per club present in the latest
// snapshot, with one point per supplied historical snapshot in which the
// club appears.
func (a *HealthAnalyzer) ClubTrends(snapshots []domain.DistrictSnapshot) []domain.ClubTrend {
	if len(snapshots) == 0 {
		return nil
	}
	latest := snapshots[len(snapshots)-1]

	trends := make([]domain.ClubTrend, 0, len(latest.Clubs))
	for _, c := range latest.Clubs {
		trend := domain.ClubTrend{
			ClubID:      c.ClubID,
			ClubName:    c.ClubName,
			Health:      a.Classify(c),
			Level:       a.DistinguishedLevel(c),
			RiskFactors: domain.FormatRiskFactors(a.RiskFlags(c)),
		}
		for _, snap := range snapshots {
			for _, hc := range snap.Clubs {
				if hc.ClubID != c.ClubID {
					continue
				}
				trend.MembershipTrend = append(trend.MembershipTrend, domain.TrendPoint{
					Date:  snap.SnapshotID,
					Value: float64(hc.ActiveMembers),
				})
				trend.DCPGoalsTrend = append(trend.DCPGoalsTrend, domain.TrendPoint{
					Date:  snap.SnapshotID,
					Value: float64(hc.GoalsMet),
				})
				break
			}
		}
		trends = append(trends, trend)
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].ClubID < trends[j].ClubID })
	return trends
}
