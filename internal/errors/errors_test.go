package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := NotFound("job not found")
	assert.Equal(t, "job not found", err.Error())
	assert.Equal(t, ErrCodeNotFound, err.Code)

	wrapped := Wrap(stderrors.New("disk full"), ErrCodeArtifact, "produce artifact")
	assert.Equal(t, "produce artifact: disk full", wrapped.Error())
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "nothing %d", 1))
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrapf(cause, ErrCodeArtifact, "produce artifact for %s", "job-1")

	require.ErrorIs(t, err, cause)
	assert.True(t, IsArtifact(err))
}

func TestCodePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundf("job %s not found", "x")))
	assert.True(t, IsValidation(Validationf("bad %s", "input")))
	assert.True(t, IsInvalidTransition(InvalidTransitionf("%s -> %s", "completed", "queued")))
	assert.False(t, IsNotFound(Internal("boom")))
	assert.False(t, IsNotFound(stderrors.New("plain")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeValidation, GetCode(Validation("bad")))
	assert.Equal(t, ErrorCode(""), GetCode(stderrors.New("plain")))

	// Code survives additional wrapping with %w.
	err := Wrap(NotFound("job not found"), ErrCodeInternal, "lookup")
	assert.Equal(t, ErrCodeInternal, GetCode(err))
}
