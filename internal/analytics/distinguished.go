package analytics

import (
	"districtpulse/pkg/contracts/domain"
)

// DistinguishedAnalyzer counts recognition levels and projects the
// year-end distinguished-club count.
type DistinguishedAnalyzer struct {
	health *HealthAnalyzer
}

// NewDistinguishedAnalyzer creates a distinguished analyzer.
func NewDistinguishedAnalyzer(health *HealthAnalyzer) *DistinguishedAnalyzer {
	return &DistinguishedAnalyzer{health: health}
}

// Project counts the current recognition levels and projects the year-end
// distinguished count as the number of currently thriving clubs. Thriving
// clubs meet membership, checkpoint and planning criteria simultaneously,
// which historically tracks actual year-end distinguished counts closely.
func (d *DistinguishedAnalyzer) Project(clubs []domain.ClubRecord, projectionDate string) domain.DistinguishedProjection {
	p := domain.DistinguishedProjection{ProjectionDate: projectionDate}

	for _, c := range clubs {
		switch d.health.DistinguishedLevel(c) {
		case domain.LevelSmedley:
			p.SmedleyCount++
		case domain.LevelPresidents:
			p.PresidentsCount++
		case domain.LevelSelect:
			p.SelectCount++
		case domain.LevelDistinguished:
			p.DistinguishedCount++
		}
		if d.health.Classify(c) == domain.HealthThriving {
			p.ProjectedDistinguished++
		}
	}
	return p
}
