package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	sentinel := NotFound("payroll not found")

	t.Run("direct", func(t *testing.T) {
		kind, ok := KindOf(sentinel)
		assert.True(t, ok)
		assert.Equal(t, KindNotFound, kind)
	})

	t.Run("wrapped by fmt", func(t *testing.T) {
		err := fmt.Errorf("load run: %w", sentinel)
		assert.True(t, IsNotFound(err))
		assert.False(t, IsValidation(err))
		assert.True(t, errors.Is(err, sentinel))
	})

	t.Run("plain error", func(t *testing.T) {
		_, ok := KindOf(errors.New("boom"))
		assert.False(t, ok)
	})
}

func TestWrap(t *testing.T) {
	sentinel := Validation("cost center distribution must sum to 100")
	cause := errors.New("sum is 99.5")

	err := Wrap(sentinel, cause)

	assert.True(t, errors.Is(err, sentinel))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsValidation(err))
	assert.Equal(t, "cost center distribution must sum to 100", MessageOf(err))
	assert.Equal(t, sentinel, Wrap(sentinel, nil))
}

func TestBusinessRule(t *testing.T) {
	err := BusinessRule("payroll is closed")
	assert.True(t, IsBusinessRule(err))
	assert.Equal(t, "payroll is closed", err.Error())
}
