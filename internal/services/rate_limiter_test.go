package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter := NewSMSRateLimiter(2, time.Hour)

	assert.NoError(t, limiter.Allow("+447700900001"))
	assert.NoError(t, limiter.Allow("+447700900001"))
	assert.Error(t, limiter.Allow("+447700900001"))

	// Limits are per number.
	assert.NoError(t, limiter.Allow("+447700900002"))

	stats := limiter.GetStats()
	assert.Equal(t, 2, stats["tracked_numbers"])
	assert.Equal(t, 2, stats["max_requests"])
}

func TestSMSRateLimiterExpiresOldRequests(t *testing.T) {
	limiter := NewSMSRateLimiter(1, 50*time.Millisecond)

	require.NoError(t, limiter.Allow("+447700900001"))
	require.Error(t, limiter.Allow("+447700900001"))

	time.Sleep(60 * time.Millisecond)
	assert.NoError(t, limiter.Allow("+447700900001"), "requests outside the window no longer count")
}

func TestSMSRateLimiterReset(t *testing.T) {
	limiter := NewSMSRateLimiter(1, time.Hour)

	require.NoError(t, limiter.Allow("+447700900001"))
	require.Error(t, limiter.Allow("+447700900001"))

	limiter.Reset()
	assert.NoError(t, limiter.Allow("+447700900001"))
	assert.Equal(t, 1, limiter.GetStats()["tracked_numbers"])
}
