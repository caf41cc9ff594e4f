package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocationQuota_WithinLimit(t *testing.T) {
	q := NewInvocationQuota(10)

	for i := 0; i < 10; i++ {
		assert.NoError(t, q.Check("top"), "invocation %d should be allowed", i+1)
	}
}

func TestInvocationQuota_ExceedsLimit(t *testing.T) {
	q := NewInvocationQuota(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Check("top"))
	}

	err := q.Check("top")
	require.Error(t, err)

	var ee *ElaborationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeNonDeterministic, ee.Code)
	assert.Equal(t, "top", ee.Module)
	assert.Contains(t, ee.Message, "4 > 3")
	assert.True(t, IsNonDeterministicError(err))
}

func TestInvocationQuota_Unbounded(t *testing.T) {
	q := NewInvocationQuota(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, q.Check("top"))
	}
}
