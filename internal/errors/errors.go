package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors.
type ErrorType string

const (
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeCorruption ErrorType = "CORRUPTION"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypePipeline   ErrorType = "PIPELINE"
)

// Sentinel errors for control flow. Absence of data is represented by nil
// results, never by these errors; they mark genuine failures.
var (
	// ErrStaleWrite marks a closing-period overwrite rejected because the
	// stored snapshot carries a newer collection date. Callers log and
	// continue; it is never fatal.
	ErrStaleWrite = errors.New("stale write skipped: stored data is newer")

	// ErrCorruptionDetected marks a failed integrity check on read after
	// bounded recovery was attempted.
	ErrCorruptionDetected = errors.New("data corruption detected")
)

// AppError is an application error with classification and key-value
// context for logging.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to traverse the cause chain.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key-value pair for structured logging.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a classified application error.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewValidationError creates a VALIDATION error for a rejected input.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// StorageError wraps a storage failure with operation, snapshot and
// district context so logs can locate the failing key.
func StorageError(op, snapshotID, districtID string, cause error) *AppError {
	e := NewAppError(ErrTypeStorage, fmt.Sprintf("storage %s failed", op), cause)
	e.Context["operation"] = op
	if snapshotID != "" {
		e.Context["snapshot_id"] = snapshotID
	}
	if districtID != "" {
		e.Context["district_id"] = districtID
	}
	return e
}

// CorruptionError wraps ErrCorruptionDetected with location context.
func CorruptionError(path string, cause error) *AppError {
	e := NewAppError(ErrTypeCorruption, "integrity check failed", fmt.Errorf("%w: %v", ErrCorruptionDetected, cause))
	e.Context["path"] = path
	return e
}

// IsValidation reports whether err classifies as a validation error.
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ErrTypeValidation
}

// IsCorruption reports whether err carries a corruption sentinel.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorruptionDetected)
}

// IsStaleWrite reports whether err is a skipped stale overwrite.
func IsStaleWrite(err error) bool {
	return errors.Is(err, ErrStaleWrite)
}
