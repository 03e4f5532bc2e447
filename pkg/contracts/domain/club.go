package domain

// HealthStatus is a club's health classification. The four values
// partition the club set: every club receives exactly one.
type HealthStatus string

const (
	HealthThriving             HealthStatus = "thriving"
	HealthStable               HealthStatus = "stable"
	HealthVulnerable           HealthStatus = "vulnerable"
	HealthInterventionRequired HealthStatus = "intervention-required"
)

// DistinguishedLevel is a club's Distinguished Club Program recognition level.
type DistinguishedLevel string

const (
	LevelNone          DistinguishedLevel = "none"
	LevelDistinguished DistinguishedLevel = "distinguished"
	LevelSelect        DistinguishedLevel = "select"
	LevelPresidents    DistinguishedLevel = "presidents"
	LevelSmedley       DistinguishedLevel = "smedley"
)

// ClubRecord is one club's state at one snapshot. DCPCheckpointMet and
// CSPSubmitted are resolved from the export at the ingestion boundary.
type ClubRecord struct {
	ClubID         string `json:"club_id" validate:"required"`
	ClubName       string `json:"club_name"`
	Division       string `json:"division"`
	Area           string `json:"area"`
	ActiveMembers  int    `json:"active_members" validate:"min=0"`
	MembershipBase int    `json:"membership_base" validate:"min=0"`
	GoalsMet       int    `json:"goals_met" validate:"min=0,max=10"`

	// DCPCheckpointMet reports whether the club is on pace for the
	// point-in-year Distinguished Club Program checkpoint.
	DCPCheckpointMet bool `json:"dcp_checkpoint_met"`
	// CSPSubmitted reports whether the Club Success Plan is on file.
	CSPSubmitted bool `json:"csp_submitted"`
}

// NetGrowth returns active members over membership base.
func (c ClubRecord) NetGrowth() int {
	return c.ActiveMembers - c.MembershipBase
}

// Club-export column chains, same first-match-wins convention as the
// district chains above.
var (
	colClubID         = []string{"Club Number", "Club", "Club ID"}
	colClubName       = []string{"Club Name", "Name"}
	colClubDivision   = []string{"Division"}
	colClubArea       = []string{"Area"}
	colClubMembers    = []string{"Active Members", "Members", "Mem. Base + New"}
	colClubMemBase    = []string{"Mem. Base", "Membership Base", "Member Base"}
	colClubGoals      = []string{"Goals Met", "Total Goals Met", "DCP Goals"}
	colClubCheckpoint = []string{"On Track", "Checkpoint Met"}
	colClubCSP        = []string{"Club Success Plan", "CSP Submitted", "CSP"}
)

// ClubFromRaw builds a ClubRecord from a raw club-export row. Boolean
// columns accept the export's yes/no spellings. Exports that carry no
// checkpoint column fall back to the goals-met pace: the checkpoint
// counts as met when GoalsMet reaches checkpointGoals (a threshold of
// zero disables the fallback).
func ClubFromRaw(raw RawRecord, checkpointGoals int) ClubRecord {
	club := ClubRecord{
		ClubID:         lookup(raw, colClubID),
		ClubName:       lookup(raw, colClubName),
		Division:       lookup(raw, colClubDivision),
		Area:           lookup(raw, colClubArea),
		ActiveMembers:  lookupInt(raw, colClubMembers),
		MembershipBase: lookupInt(raw, colClubMemBase),
		GoalsMet:       lookupInt(raw, colClubGoals),
		CSPSubmitted:   lookupBool(raw, colClubCSP),
	}
	if lookup(raw, colClubCheckpoint) != "" {
		club.DCPCheckpointMet = lookupBool(raw, colClubCheckpoint)
	} else {
		club.DCPCheckpointMet = checkpointGoals > 0 && club.GoalsMet >= checkpointGoals
	}
	return club
}

// RiskFlags marks the conditions that put a club at risk. Each flag maps
// to exactly one human-readable string; FormatRiskFactors and
// ParseRiskFactors round-trip losslessly.
type RiskFlags struct {
	LowMembership       bool `json:"low_membership"`
	DecliningMembership bool `json:"declining_membership"`
	MissedCheckpoint    bool `json:"missed_checkpoint"`
	NoSuccessPlan       bool `json:"no_success_plan"`
}

const (
	riskLowMembership       = "Membership below charter strength"
	riskDecliningMembership = "Net membership loss against base"
	riskMissedCheckpoint    = "Behind on DCP goal checkpoint"
	riskNoSuccessPlan       = "No Club Success Plan submitted"
)

// FormatRiskFactors renders each raised flag as its display string, in a
// fixed order.
func FormatRiskFactors(f RiskFlags) []string {
	var out []string
	if f.LowMembership {
		out = append(out, riskLowMembership)
	}
	if f.DecliningMembership {
		out = append(out, riskDecliningMembership)
	}
	if f.MissedCheckpoint {
		out = append(out, riskMissedCheckpoint)
	}
	if f.NoSuccessPlan {
		out = append(out, riskNoSuccessPlan)
	}
	return out
}

// ParseRiskFactors inverts FormatRiskFactors. Unknown strings are ignored.
func ParseRiskFactors(factors []string) RiskFlags {
	var f RiskFlags
	for _, s := range factors {
		switch s {
		case riskLowMembership:
			f.LowMembership = true
		case riskDecliningMembership:
			f.DecliningMembership = true
		case riskMissedCheckpoint:
			f.MissedCheckpoint = true
		case riskNoSuccessPlan:
			f.NoSuccessPlan = true
		}
	}
	return f
}

// ClubTrend is one club's history across the snapshots of a program year.
type ClubTrend struct {
	ClubID          string             `json:"club_id"`
	ClubName        string             `json:"club_name"`
	Health          HealthStatus       `json:"health"`
	Level           DistinguishedLevel `json:"level"`
	RiskFactors     []string           `json:"risk_factors,omitempty"`
	MembershipTrend []TrendPoint       `json:"membership_trend"`
	DCPGoalsTrend   []TrendPoint       `json:"dcp_goals_trend"`
}
