package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	detailed := NewDomainError("NOT_FOUND", "batch 42 not found")

	assert.True(t, errors.Is(detailed, ErrNotFound))
	assert.True(t, errors.Is(fmt.Errorf("lookup: %w", detailed), ErrNotFound))
	assert.False(t, errors.Is(detailed, ErrInvalidInput))
}

func TestDomainError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("lock wait timeout")
	err := WrapDomainError("CONTENTION", "batch row busy", cause)

	assert.Equal(t, "batch row busy: lock wait timeout", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "CONTENTION", CodeOf(fmt.Errorf("commit: %w", err)))
	assert.Equal(t, "", CodeOf(cause))
}
