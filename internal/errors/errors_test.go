package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorFormatting(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewAppError(ErrTypeStorage, "write snapshot", cause)

	assert.Equal(t, "[STORAGE] write snapshot: disk full", err.Error())
	assert.Equal(t, cause, stderrors.Unwrap(err))

	bare := NewValidationError("district id looks like a date")
	assert.Equal(t, "[VALIDATION] district id looks like a date", bare.Error())
	assert.True(t, IsValidation(bare))
	assert.False(t, IsValidation(err))
}

func TestStorageErrorContext(t *testing.T) {
	err := StorageError("write_district", "2025-06-30", "42", stderrors.New("permission denied"))

	assert.Equal(t, "write_district", err.Context["operation"])
	assert.Equal(t, "2025-06-30", err.Context["snapshot_id"])
	assert.Equal(t, "42", err.Context["district_id"])
}

func TestCorruptionErrorIsDetectable(t *testing.T) {
	err := CorruptionError("/data/timeseries/42/2024-2025.json", stderrors.New("count mismatch"))

	require.True(t, IsCorruption(err))
	// Detection survives further wrapping.
	wrapped := fmt.Errorf("load partition: %w", err)
	assert.True(t, IsCorruption(wrapped))
	assert.False(t, IsCorruption(stderrors.New("count mismatch")))
}

func TestStaleWriteSentinel(t *testing.T) {
	wrapped := fmt.Errorf("snapshot 2025-06-30: %w", ErrStaleWrite)
	assert.True(t, stderrors.Is(wrapped, ErrStaleWrite))
}
