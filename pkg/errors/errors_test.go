package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	meta := MetadataFor(CodeStaleStatus)
	assert.Equal(t, http.StatusConflict, meta.HTTPStatus)
	assert.True(t, meta.Retryable)

	meta = MetadataFor(CodeOrderFinalized)
	assert.Equal(t, http.StatusUnprocessableEntity, meta.HTTPStatus)
	assert.False(t, meta.Retryable)
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "store write")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "DEPENDENCY_ERROR: store write", err.Error())
}

func TestAsUnwrapsThroughChain(t *testing.T) {
	inner := New(CodeAlreadyClaimed, "order taken")
	wrapped := Wrap(CodeDependency, inner, "claim failed")

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeDependency, typed.Code())

	assert.True(t, HasCode(wrapped, CodeDependency))
	assert.False(t, HasCode(nil, CodeDependency))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeStaleStatus, "stale")))
	assert.True(t, IsRetryable(New(CodeAlreadyClaimed, "claimed")))
	assert.False(t, IsRetryable(New(CodeStateConflict, "illegal")))
	assert.False(t, IsRetryable(stdErrors.New("untyped")))
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad input").WithDetails(map[string]string{"field": "qty"})
	require.NotNil(t, err.Details())
}
