package docerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocError_New_DerivesCategoryAndSeverity(t *testing.T) {
	err := New(ErrCodeDocumentNotFound, "document missing", nil)
	assert.Equal(t, CategoryNotFound, err.Category)
	assert.Equal(t, SeverityError, err.Severity)
	assert.False(t, err.Retryable)
}

func TestDocError_New_FatalCodesAreFatal(t *testing.T) {
	err := New(ErrCodeCorruptIndex, "index corrupt", nil)
	assert.Equal(t, SeverityFatal, err.Severity)
	assert.True(t, IsFatal(err))
}

func TestDocError_New_RetryableCodesAreWarning(t *testing.T) {
	err := New(ErrCodeEmbedderTimeout, "embedder timed out", nil)
	assert.Equal(t, SeverityWarning, err.Severity)
	assert.True(t, err.Retryable)
	assert.True(t, IsRetryable(err))
}

func TestDocError_Unwrap_ReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrCodeStorageIO, cause)
	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestDocError_Wrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeStorageIO, nil))
}

func TestDocError_Is_MatchesByCode(t *testing.T) {
	a := New(ErrCodeChunkNotFound, "chunk missing", nil)
	b := New(ErrCodeChunkNotFound, "different message, same code", nil)
	c := New(ErrCodeDocumentNotFound, "different code", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestDocError_WithDetail_AccumulatesDetails(t *testing.T) {
	err := New(ErrCodeInvalidInput, "bad", nil).
		WithDetail("field", "query").
		WithDetail("reason", "empty")

	assert.Equal(t, "query", err.Details["field"])
	assert.Equal(t, "empty", err.Details["reason"])
}

func TestDocError_Constructors_UseExpectedCodes(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidInput, GetCode(Validation("x", nil)))
	assert.Equal(t, ErrCodeStorageIO, GetCode(Storage("x", nil)))
	assert.Equal(t, ErrCodeEmbedderUnavailable, GetCode(EmbedderErr("x", nil)))
	assert.Equal(t, ErrCodeInternal, GetCode(Internal("x", nil)))
	assert.Equal(t, ErrCodeCancelled, GetCode(Cancelled("x", nil)))
	assert.Equal(t, CategoryEmbedder, GetCategory(EmbedderErr("x", nil)))
}

func TestDocError_Timeout_IsRetryable(t *testing.T) {
	err := Timeout("deadline exceeded", nil)
	assert.True(t, err.Retryable)
	assert.Equal(t, CategoryCancelled, err.Category)
}

func TestDocError_Helpers_NonDocErrorIsSafe(t *testing.T) {
	plain := errors.New("plain")
	assert.False(t, IsRetryable(plain))
	assert.False(t, IsFatal(plain))
	assert.Equal(t, "", GetCode(plain))
	assert.Equal(t, Category(""), GetCategory(plain))
}
