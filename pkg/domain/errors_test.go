package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	err := Conflict("system-1", "Already locked: %s", "instance-a")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "Already locked: instance-a (origin: system-1)", err.Error())
	assert.Equal(t, "system-1", OriginOf(err))
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Storage("system-1", "job.create", cause)

	assert.True(t, errors.Is(err, ErrStorage))

	var derr *Error
	assert.True(t, errors.As(err, &derr))
	assert.Equal(t, cause, derr.Cause)
}

func TestOriginSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("handling request: %w", Forbidden("system-2", "not the owner"))

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "system-2", OriginOf(err))
}

func TestOriginOfPlainError(t *testing.T) {
	assert.Equal(t, "", OriginOf(errors.New("plain")))
}
