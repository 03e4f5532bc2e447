package snapshot

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"districtpulse/internal/closing"
	apperrors "districtpulse/internal/errors"
	"districtpulse/pkg/contracts/domain"
)

var (
	districtIDPattern = regexp.MustCompile(`^[0-9A-Za-z-]{1,10}$`)
	dateLikePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Registered so struct tags on DistrictStatistics can enforce the
	// same rule the store applies to path components.
	v.RegisterValidation("district_id", func(fl validator.FieldLevel) bool {
		return isValidDistrictID(fl.Field().String())
	})
	return v
}

func isValidDistrictID(id string) bool {
	if !districtIDPattern.MatchString(id) {
		return false
	}
	// An id shaped like a date is a misfiled snapshot key, not a
	// district.
	return !dateLikePattern.MatchString(id)
}

// ValidateDistrictID rejects empty, oversized, non-alphanumeric or
// date-shaped district identifiers.
func ValidateDistrictID(id string) error {
	if isValidDistrictID(id) {
		return nil
	}
	return apperrors.NewValidationError(fmt.Sprintf("invalid district id %q", id)).
		WithContext("district_id", id)
}

// ValidateSnapshotID requires the canonical date form used as snapshot
// keys.
func ValidateSnapshotID(id string) error {
	if _, err := time.Parse(closing.DateLayout, id); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid snapshot id %q: want YYYY-MM-DD", id)).
			WithContext("snapshot_id", id)
	}
	return nil
}

// ValidateStatistics checks a parsed statistics record before it enters a
// snapshot.
func ValidateStatistics(stats domain.DistrictStatistics) error {
	if err := validate.Struct(stats); err != nil {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "invalid district statistics", err).
			WithContext("district_id", stats.DistrictID)
	}
	return nil
}
