package substrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tak-akashi/company-research-agent/internal/common"
)

func TestRetryPolicy_ShouldRetry_RetryableStatusCodes(t *testing.T) {
	policy := NewRetryPolicy()

	assert.True(t, policy.ShouldRetry(429, nil))
	assert.True(t, policy.ShouldRetry(503, nil))
	assert.False(t, policy.ShouldRetry(404, nil))
	assert.False(t, policy.ShouldRetry(400, nil))
}

func TestExecuteWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	logger := common.GetLogger()
	policy := NewRetryPolicy()
	policy.InitialBackoff = 1
	policy.MaxBackoff = 1

	attempts := 0
	status, err := ExecuteWithRetry(context.Background(), logger, policy, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 503, errors.New("server unavailable")
		}
		return 200, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_DoesNotRetryClientError(t *testing.T) {
	logger := common.GetLogger()
	policy := NewRetryPolicy()

	attempts := 0
	status, err := ExecuteWithRetry(context.Background(), logger, policy, func() (int, error) {
		attempts++
		return 404, errors.New("not found")
	})

	assert.Error(t, err)
	assert.Equal(t, 404, status)
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithRetry_ExhaustsAttempts(t *testing.T) {
	logger := common.GetLogger()
	policy := NewRetryPolicy()
	policy.InitialBackoff = 1
	policy.MaxBackoff = 1

	attempts := 0
	_, err := ExecuteWithRetry(context.Background(), logger, policy, func() (int, error) {
		attempts++
		return 503, errors.New("server unavailable")
	})

	assert.Error(t, err)
	assert.Equal(t, policy.MaxAttempts, attempts)
}
