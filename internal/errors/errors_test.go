package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	// Given: errors created from codes in each band
	cases := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError},
		{ErrCodeSnapshotIO, CategoryIO, SeverityError},
		{ErrCodeCorruptIndex, CategoryIO, SeverityFatal},
		{ErrCodeEmbedUnavailable, CategoryEmbedding, SeverityWarning},
		{ErrCodeDimensionMismatch, CategoryValidation, SeverityFatal},
		{ErrCodeInternal, CategoryInternal, SeverityError},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			err := New(tc.code, "boom", nil)
			assert.Equal(t, tc.category, err.Category)
			assert.Equal(t, tc.severity, err.Severity)
		})
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk exploded")
	err := Wrap(ErrCodeSnapshotIO, cause)

	require.NotNil(t, err)
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "disk exploded", err.Message)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeSnapshotIO, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeDimensionMismatch, "first", nil)
	b := New(ErrCodeDimensionMismatch, "second", nil)
	c := New(ErrCodeCorruptIndex, "other", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestDimensionError_IsFatalAndUnchangedMessage(t *testing.T) {
	err := DimensionError(384, 128)

	assert.True(t, IsFatal(err))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, ErrCodeDimensionMismatch, GetCode(err))
	assert.Contains(t, err.Message, "384")
	assert.Contains(t, err.Message, "128")
}

func TestEmbeddingTimeout_IsRetryable(t *testing.T) {
	err := New(ErrCodeEmbedTimeout, "model cold", nil)

	assert.True(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
}

func TestExtractionError_CarriesPathDetail(t *testing.T) {
	err := ExtractionError("/data/a.nc", fmt.Errorf("bad magic"))

	assert.Equal(t, "/data/a.nc", err.Details["path"])
	assert.Equal(t, CategoryValidation, err.Category)
}

func TestGetCode_NonFairError(t *testing.T) {
	assert.Equal(t, "", GetCode(fmt.Errorf("plain")))
}

func TestFormatForCLI_IncludesSuggestion(t *testing.T) {
	err := CorruptIndexError("cardinality mismatch", nil)
	out := FormatForCLI(err)

	assert.Contains(t, out, "cardinality mismatch")
	assert.Contains(t, out, "Hint:")
	assert.Contains(t, out, ErrCodeCorruptIndex)
}
