package domain

import (
	"fmt"
	"time"
)

// ProgramYear identifies one July 1 – June 30 annual cycle by its starting
// calendar year: ProgramYear(2024) spans 2024-07-01 through 2025-06-30.
type ProgramYear int

// ProgramYearOf returns the program year containing t.
func ProgramYearOf(t time.Time) ProgramYear {
	if t.Month() >= time.July {
		return ProgramYear(t.Year())
	}
	return ProgramYear(t.Year() - 1)
}

// Label renders the partition label, e.g. "2024-2025".
func (y ProgramYear) Label() string {
	return fmt.Sprintf("%d-%d", int(y), int(y)+1)
}

// Start returns July 1 of the program year.
func (y ProgramYear) Start() time.Time {
	return time.Date(int(y), time.July, 1, 0, 0, 0, 0, time.UTC)
}

// End returns June 30 of the following calendar year.
func (y ProgramYear) End() time.Time {
	return time.Date(int(y)+1, time.June, 30, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls inside the program year.
func (y ProgramYear) Contains(t time.Time) bool {
	return !t.Before(y.Start()) && !t.After(y.End().AddDate(0, 0, 1).Add(-time.Nanosecond))
}
