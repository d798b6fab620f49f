package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(ErrNotFound, "job lookup")
	assert.True(t, Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "job lookup")
}

func TestWrapfPreservesSentinel(t *testing.T) {
	err := Wrapf(ErrQueueFull, "job %s rejected", "analysis_abc")
	assert.True(t, Is(err, ErrQueueFull))
	assert.Contains(t, err.Error(), "analysis_abc")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, Wrapf(nil, "nothing %d", 1))
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("JOB_FAILED", "pipeline error", ErrInferenceFailure)

	assert.True(t, Is(err, ErrInferenceFailure))
	assert.Contains(t, err.Error(), "JOB_FAILED")
	assert.Contains(t, err.Error(), "pipeline error")

	var domainErr *DomainError
	assert.True(t, As(err, &domainErr))
	assert.Equal(t, "JOB_FAILED", domainErr.Code)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("symbol", "must not be empty", "")
	assert.Contains(t, err.Error(), "symbol")
	assert.Contains(t, err.Error(), "must not be empty")
}
