package analytics

import (
	"districtpulse/pkg/contracts/domain"
)

// Growth percentages for club and payment recognition, and base
// percentages for distinguished-club-count recognition, ordered
// Distinguished, Select, President's, Smedley.
var (
	growthPercents = [4]int{1, 3, 5, 8}
	countPercents  = [4]int{45, 50, 55, 60}

	levelOrder = [4]domain.RecognitionLevel{
		domain.RecognitionDistinguished,
		domain.RecognitionSelect,
		domain.RecognitionPresidents,
		domain.RecognitionSmedley,
	}
)

// ComputeTargets derives recognition thresholds from the district's bases
// in the ranking artifact. A missing artifact or a non-positive base
// leaves the corresponding metric nil; targets are never fabricated as
// zeros.
func ComputeTargets(ranking *domain.DistrictRanking, current domain.DistrictStatistics) domain.PerformanceTargets {
	var t domain.PerformanceTargets
	if ranking == nil {
		return t
	}

	if ranking.ClubBase > 0 {
		t.Clubs = growthTargets(ranking.ClubBase, current.PaidClubs)
		t.Distinguished = countTargets(ranking.ClubBase, current.DistinguishedClubs)
	}
	if ranking.PaymentBase > 0 {
		t.Payments = growthTargets(ranking.PaymentBase, current.TotalPayments)
	}
	return t
}

// growthTargets computes ceil(base × (1+p)) thresholds. Integer
// arithmetic avoids float rounding drift: ceil(b·(100+p)/100) is
// (b·(100+p)+99)/100 for positive b.
func growthTargets(base, current int) *domain.LevelTargets {
	return buildTargets(current, func(pct int) int {
		return (base*(100+pct) + 99) / 100
	}, growthPercents)
}

// countTargets computes ceil(base × p) thresholds for the
// distinguished-club count.
func countTargets(base, current int) *domain.LevelTargets {
	return buildTargets(current, func(pct int) int {
		return (base*pct + 99) / 100
	}, countPercents)
}

func buildTargets(current int, threshold func(pct int) int, percents [4]int) *domain.LevelTargets {
	t := &domain.LevelTargets{
		Distinguished: threshold(percents[0]),
		Select:        threshold(percents[1]),
		Presidents:    threshold(percents[2]),
		Smedley:       threshold(percents[3]),
	}

	thresholds := [4]int{t.Distinguished, t.Select, t.Presidents, t.Smedley}
	for i := len(thresholds) - 1; i >= 0; i-- {
		if current >= thresholds[i] {
			level := levelOrder[i]
			t.AchievedLevel = &level
			break
		}
	}
	return t
}
