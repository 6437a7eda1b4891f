package beep

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewError(ErrCodeNotFound, "missing", nil)))
	assert.True(t, IsInsufficientFunds(NewError(ErrCodeInsufficientFunds, "broke", nil)))
	assert.True(t, IsTimeout(NewError(ErrCodeTimeout, "slow", nil)))
	assert.False(t, IsNotFound(NewError(ErrCodeTimeout, "slow", nil)))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestCodeOfWrappedError(t *testing.T) {
	err := fmt.Errorf("resolving asset: %w", NewError(ErrCodeNotFound, "no such product", nil))
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
	assert.True(t, IsNotFound(err))
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(ErrCodeNetwork, "request failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "network_error: request failed", err.Error())
}
