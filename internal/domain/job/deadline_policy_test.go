package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeadlinePolicy(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		policy, err := NewDeadlinePolicy(30 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, policy.Default())
	})

	t.Run("invalid default run time", func(t *testing.T) {
		policy, err := NewDeadlinePolicy(0)
		require.ErrorIs(t, err, ErrInvalidDefaultRunTime)
		assert.Nil(t, policy)
	})
}

func TestDeadlinePolicy_Resolve(t *testing.T) {
	policy, err := NewDeadlinePolicy(30 * time.Second)
	require.NoError(t, err)

	t.Run("explicit maxRunTime uses whole seconds", func(t *testing.T) {
		decision := policy.Resolve(45 * time.Second)
		assert.Equal(t, 45, decision.Seconds)
		assert.Equal(t, RunTimeExplicit, decision.Source)
		assert.False(t, decision.Clamped())
	})

	t.Run("default run time when sub-job requests none", func(t *testing.T) {
		decision := policy.Resolve(0)
		assert.Equal(t, 30, decision.Seconds)
		assert.Equal(t, RunTimeDefault, decision.Source)
		assert.True(t, decision.UsedDefault())
	})

	t.Run("sub-second maxRunTime clamps to minimum", func(t *testing.T) {
		decision := policy.Resolve(500 * time.Millisecond)
		assert.Equal(t, 1, decision.Seconds)
		assert.Equal(t, RunTimeClamped, decision.Source)
		assert.True(t, decision.Clamped())
	})

	t.Run("negative maxRunTime clamps to minimum", func(t *testing.T) {
		decision := policy.Resolve(-5 * time.Second)
		assert.Equal(t, 1, decision.Seconds)
		assert.Equal(t, RunTimeClamped, decision.Source)
		assert.True(t, decision.Clamped())
	})

	t.Run("nil policy defaults to zero without panicking", func(t *testing.T) {
		var nilPolicy *DeadlinePolicy
		assert.Equal(t, time.Duration(0), nilPolicy.Default())
		decision := nilPolicy.Resolve(10 * time.Second)
		assert.Equal(t, 0, decision.Seconds)
		assert.Equal(t, RunTimeDefault, decision.Source)
	})
}
