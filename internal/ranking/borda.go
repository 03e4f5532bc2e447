// Package ranking computes cross-district standings for one snapshot
// date using a Borda count over three categories: paid clubs, membership
// payments, and distinguished clubs.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"districtpulse/pkg/contracts/domain"
)

// Calculator produces ranking artifacts.
type Calculator struct {
	logger *slog.Logger
}

// NewCalculator creates a ranking calculator.
func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{logger: logger.With(slog.String("component", "ranking_calculator"))}
}

// Calculate ranks every district present in the snapshot. Category ranks
// use competition ranking: districts with equal metric values share a rank
// and share the Borda points for it. The output order is total and
// deterministic (aggregate score descending, district id ascending), so
// repeated runs over identical input are bit-identical.
func (c *Calculator) Calculate(ctx context.Context, snapshotID string, stats []domain.DistrictStatistics) (*domain.RankingArtifact, error) {
	if len(stats) == 0 {
		return nil, fmt.Errorf("no district statistics for snapshot %s", snapshotID)
	}

	n := len(stats)
	c.logger.InfoContext(ctx, "calculating district rankings",
		slog.String("snapshot_id", snapshotID),
		slog.Int("districts", n))

	clubsRank := competitionRanks(stats, func(s domain.DistrictStatistics) int { return s.PaidClubs })
	paymentsRank := competitionRanks(stats, func(s domain.DistrictStatistics) int { return s.TotalPayments })
	distinguishedRank := competitionRanks(stats, func(s domain.DistrictStatistics) int { return s.DistinguishedClubs })

	rankings := make([]domain.DistrictRanking, n)
	for i, s := range stats {
		cr := clubsRank[s.DistrictID]
		pr := paymentsRank[s.DistrictID]
		dr := distinguishedRank[s.DistrictID]
		rankings[i] = domain.DistrictRanking{
			DistrictID:        s.DistrictID,
			ClubsRank:         cr,
			PaymentsRank:      pr,
			DistinguishedRank: dr,
			AggregateScore:    bordaPoints(n, cr) + bordaPoints(n, pr) + bordaPoints(n, dr),
			ClubBase:          s.ClubBase,
			PaymentBase:       s.PaymentBase,
		}
	}

	// Total order: aggregate descending, district id as the tie-break.
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].AggregateScore != rankings[j].AggregateScore {
			return rankings[i].AggregateScore > rankings[j].AggregateScore
		}
		return rankings[i].DistrictID < rankings[j].DistrictID
	})

	// Equal aggregate scores share the overall rank.
	for i := range rankings {
		if i > 0 && rankings[i].AggregateScore == rankings[i-1].AggregateScore {
			rankings[i].OverallRank = rankings[i-1].OverallRank
		} else {
			rankings[i].OverallRank = i + 1
		}
	}

	return &domain.RankingArtifact{
		SnapshotID:     snapshotID,
		TotalDistricts: n,
		Rankings:       rankings,
	}, nil
}

// competitionRanks assigns 1-indexed competition ranks by metric value
// descending: a district's rank is one plus the number of districts with a
// strictly greater value.
func competitionRanks(stats []domain.DistrictStatistics, metric func(domain.DistrictStatistics) int) map[string]int {
	ranks := make(map[string]int, len(stats))
	for _, s := range stats {
		rank := 1
		v := metric(s)
		for _, other := range stats {
			if metric(other) > v {
				rank++
			}
		}
		ranks[s.DistrictID] = rank
	}
	return ranks
}

// bordaPoints awards totalDistricts − rank + 1 points for a category rank,
// so first place in a field of n earns n points and last place earns at
// least one.
func bordaPoints(totalDistricts, rank int) int {
	return totalDistricts - rank + 1
}
