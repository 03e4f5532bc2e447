package domain

// DistrictRanking is one district's cross-district standing for one
// snapshot date. Category ranks use competition ranking (ties share a
// rank); OverallRank is the 1-indexed position by AggregateScore
// descending, with equal scores sharing the same rank.
type DistrictRanking struct {
	DistrictID        string `json:"district_id"`
	ClubsRank         int    `json:"clubs_rank"`
	PaymentsRank      int    `json:"payments_rank"`
	DistinguishedRank int    `json:"distinguished_rank"`
	AggregateScore    int    `json:"aggregate_score"`
	OverallRank       int    `json:"overall_rank"`

	// Bases carried for recognition-target computation downstream.
	ClubBase    int `json:"club_base"`
	PaymentBase int `json:"payment_base"`
}

// RankingArtifact is the precomputed all-districts ranking for one
// snapshot date, consumed by per-district analytics.
type RankingArtifact struct {
	SnapshotID     string            `json:"snapshot_id"`
	TotalDistricts int               `json:"total_districts"`
	Rankings       []DistrictRanking `json:"rankings"`
}

// ForDistrict returns the ranking entry for one district, or nil when the
// district is absent from the artifact.
func (a *RankingArtifact) ForDistrict(districtID string) *DistrictRanking {
	if a == nil {
		return nil
	}
	for i := range a.Rankings {
		if a.Rankings[i].DistrictID == districtID {
			return &a.Rankings[i]
		}
	}
	return nil
}
