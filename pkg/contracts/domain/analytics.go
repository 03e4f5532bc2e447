package domain

// TrendPoint is one dated observation in a trend array.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// YoYMetric pairs a current and previous-year value for one metric.
// Change is the absolute difference in the metric's own unit;
// PercentageChange is relative to the previous value and is omitted when
// the previous value is zero, where no real percentage exists. The two
// fields are deliberately named by unit of measure so they cannot be
// confused.
type YoYMetric struct {
	Current          float64  `json:"current"`
	Previous         float64  `json:"previous"`
	Change           float64  `json:"change"`
	PercentageChange *float64 `json:"percentage_change,omitempty"`
}

// YearOverYearComparison compares a district's current snapshot with the
// resolved previous-program-year snapshot. When no previous-year snapshot
// resolves, DataAvailable is false and every metric pointer is nil; values
// are never fabricated.
type YearOverYearComparison struct {
	DataAvailable bool   `json:"data_available"`
	CurrentDate   string `json:"current_date,omitempty"`
	PreviousDate  string `json:"previous_date,omitempty"`

	Membership         *YoYMetric `json:"membership,omitempty"`
	PaidClubs          *YoYMetric `json:"paid_clubs,omitempty"`
	Payments           *YoYMetric `json:"payments,omitempty"`
	DistinguishedClubs *YoYMetric `json:"distinguished_clubs,omitempty"`
}

// DistinguishedProjection carries current recognition-level counts and the
// year-end projection. ProjectedDistinguished is the count of currently
// thriving clubs.
type DistinguishedProjection struct {
	ProjectedDistinguished int    `json:"projected_distinguished"`
	SmedleyCount           int    `json:"smedley_count"`
	PresidentsCount        int    `json:"presidents_count"`
	SelectCount            int    `json:"select_count"`
	DistinguishedCount     int    `json:"distinguished_count"`
	ProjectionDate         string `json:"projection_date"`
}

// RecognitionLevel names a district recognition tier.
type RecognitionLevel string

const (
	RecognitionDistinguished RecognitionLevel = "distinguished"
	RecognitionSelect        RecognitionLevel = "select"
	RecognitionPresidents    RecognitionLevel = "presidents"
	RecognitionSmedley       RecognitionLevel = "smedley"
)

// LevelTargets holds the four recognition thresholds for one metric plus
// the highest level the current value meets. AchievedLevel is nil when the
// current value is below the Distinguished threshold.
type LevelTargets struct {
	Distinguished int               `json:"distinguished"`
	Select        int               `json:"select"`
	Presidents    int               `json:"presidents"`
	Smedley       int               `json:"smedley"`
	AchievedLevel *RecognitionLevel `json:"achieved_level"`
}

// PerformanceTargets holds recognition targets per metric. A nil metric
// entry means the base needed to compute it was unavailable; targets are
// never reported as zero in that case.
type PerformanceTargets struct {
	Clubs         *LevelTargets `json:"clubs"`
	Payments      *LevelTargets `json:"payments"`
	Distinguished *LevelTargets `json:"distinguished"`
}

// ClubHealthSummary buckets a district's clubs by health classification.
// The four lists partition the club set.
type ClubHealthSummary struct {
	Thriving             []string `json:"thriving"`
	Stable               []string `json:"stable"`
	Vulnerable           []string `json:"vulnerable"`
	InterventionRequired []string `json:"intervention_required"`
}

// Total returns the number of classified clubs.
func (s ClubHealthSummary) Total() int {
	return len(s.Thriving) + len(s.Stable) + len(s.Vulnerable) + len(s.InterventionRequired)
}

// VulnerableClub is one entry of the vulnerable-club list artifact.
type VulnerableClub struct {
	ClubID      string       `json:"club_id"`
	ClubName    string       `json:"club_name"`
	Health      HealthStatus `json:"health"`
	Members     int          `json:"members"`
	NetGrowth   int          `json:"net_growth"`
	RiskFactors []string     `json:"risk_factors"`
}

// DistrictAnalytics is the full per-district artifact written after each
// snapshot run and read verbatim by the serving layer.
type DistrictAnalytics struct {
	DistrictID string `json:"district_id"`
	SnapshotID string `json:"snapshot_id"`

	MembershipTrend []TrendPoint `json:"membership_trend"`
	PaymentsTrend   []TrendPoint `json:"payments_trend"`
	ClubCountTrend  []TrendPoint `json:"club_count_trend"`

	ClubHealth      ClubHealthSummary       `json:"club_health"`
	VulnerableClubs []VulnerableClub        `json:"vulnerable_clubs"`
	ClubTrends      []ClubTrend             `json:"club_trends"`
	Distinguished   DistinguishedProjection `json:"distinguished"`
	YearOverYear    YearOverYearComparison  `json:"year_over_year"`
	Targets         PerformanceTargets      `json:"targets"`
	Ranking         *DistrictRanking        `json:"ranking,omitempty"`
	Insights        []string                `json:"insights,omitempty"`
}
