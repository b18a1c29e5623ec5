package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionErrorMessage(t *testing.T) {
	err := NewTransitionError("validation_project", "draft", "approved")
	assert.Contains(t, err.Error(), "draft")
	assert.Contains(t, err.Error(), "approved")

	terminal := NewTransitionError("change_request", "completed", "")
	assert.Contains(t, terminal.Error(), "completed")
}

func TestIsTransitionError(t *testing.T) {
	err := NewTransitionError("document", "pending", "draft")
	assert.True(t, IsTransitionError(err))
	assert.True(t, IsTransitionError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsTransitionError(errors.New("other")))
	assert.False(t, IsTransitionError(nil))
}

func TestErrorsAsExtractsFields(t *testing.T) {
	wrapped := fmt.Errorf("update failed: %w", NewTransitionError("risk_assessment", "approved", "rejected"))

	var terr *TransitionError
	assert.True(t, errors.As(wrapped, &terr))
	assert.Equal(t, "risk_assessment", terr.Entity)
	assert.Equal(t, "approved", terr.From)
	assert.Equal(t, "rejected", terr.To)
}
