package domain

import (
	"strconv"
	"strings"
)

// DistrictStatistics holds all tracked metrics for one district at one
// snapshot date. Values come from the external dashboard export and are
// resolved from raw column names exactly once, at the ingestion boundary
// (see FromRaw); computation code never touches raw field names.
type DistrictStatistics struct {
	DistrictID string `json:"district_id" validate:"required,district_id"`
	AsOfDate   string `json:"as_of_date" validate:"required,datetime=2006-01-02"`

	// Organizational structure
	Divisions int `json:"divisions" validate:"min=0"`
	Areas     int `json:"areas" validate:"min=0"`

	// Club counts
	TotalClubs int `json:"total_clubs" validate:"min=0"`
	PaidClubs  int `json:"paid_clubs" validate:"min=0"`
	ClubBase   int `json:"club_base" validate:"min=0"`

	// Membership
	TotalMembers   int `json:"total_members" validate:"min=0"`
	MembershipBase int `json:"membership_base" validate:"min=0"`

	// Payments
	TotalPayments int `json:"total_payments" validate:"min=0"`
	PaymentBase   int `json:"payment_base" validate:"min=0"`

	// Distinguished Club Program
	DCPGoalsAchieved   int `json:"dcp_goals_achieved" validate:"min=0"`
	DistinguishedClubs int `json:"distinguished_clubs" validate:"min=0"`
}

// RawRecord is one row of the parsed external export, keyed by source
// column name. CSV parsing into RawRecord happens outside this module.
type RawRecord map[string]string

// Fallback column-name chains for the external export. The source has
// renamed columns several times over the years; every historical variant
// is listed here, first match wins. This is the only place raw names are
// interpreted.
var (
	colDistrict      = []string{"District", "DISTRICT", "Dist"}
	colAsOf          = []string{"As of Date", "AsOf", "Report Date"}
	colDivisions     = []string{"Total Divisions", "Divisions"}
	colAreas         = []string{"Total Areas", "Areas"}
	colTotalClubs    = []string{"Total Clubs", "Club Count", "Clubs"}
	colPaidClubs     = []string{"Paid Clubs", "Total Paid Clubs"}
	colClubBase      = []string{"Club Base", "Paid Club Base"}
	colMembers       = []string{"Total Members", "Active Members", "Membership"}
	colMemberBase    = []string{"Membership Base", "Member Base"}
	colPayments      = []string{"Total Payments", "Total YTD Payments", "Payments"}
	colPaymentBase   = []string{"Payment Base", "Payments Base"}
	colDCPGoals      = []string{"DCP Goals Achieved", "Goals Achieved", "Total Goals"}
	colDistinguished = []string{"Distinguished Clubs", "Total Distinguished Clubs"}
)

// FromRaw builds DistrictStatistics from a raw export row, resolving each
// metric through its fallback column chain. Missing numeric columns become
// zero; the caller validates the result before use.
func FromRaw(raw RawRecord) DistrictStatistics {
	return DistrictStatistics{
		DistrictID:         lookup(raw, colDistrict),
		AsOfDate:           lookup(raw, colAsOf),
		Divisions:          lookupInt(raw, colDivisions),
		Areas:              lookupInt(raw, colAreas),
		TotalClubs:         lookupInt(raw, colTotalClubs),
		PaidClubs:          lookupInt(raw, colPaidClubs),
		ClubBase:           lookupInt(raw, colClubBase),
		TotalMembers:       lookupInt(raw, colMembers),
		MembershipBase:     lookupInt(raw, colMemberBase),
		TotalPayments:      lookupInt(raw, colPayments),
		PaymentBase:        lookupInt(raw, colPaymentBase),
		DCPGoalsAchieved:   lookupInt(raw, colDCPGoals),
		DistinguishedClubs: lookupInt(raw, colDistinguished),
	}
}

func lookup(raw RawRecord, chain []string) string {
	for _, name := range chain {
		if v, ok := raw[name]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func lookupInt(raw RawRecord, chain []string) int {
	v := lookup(raw, chain)
	if v == "" {
		return 0
	}
	// Exports format thousands with commas.
	v = strings.ReplaceAll(v, ",", "")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func lookupBool(raw RawRecord, chain []string) bool {
	switch strings.ToLower(lookup(raw, chain)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

// NetClubGrowth returns paid clubs over club base.
func (s DistrictStatistics) NetClubGrowth() int {
	return s.PaidClubs - s.ClubBase
}

// NetMembershipGrowth returns members over membership base.
func (s DistrictStatistics) NetMembershipGrowth() int {
	return s.TotalMembers - s.MembershipBase
}
