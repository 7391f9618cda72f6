package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurst(t *testing.T) {
	limiter := newRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(), "token %d", i)
	}
	assert.False(t, limiter.Allow())
}

func TestRateLimiterInvalidParameters(t *testing.T) {
	limiter := newRateLimiter(0, 0)

	assert.Equal(t, 1, limiter.Burst())
	assert.True(t, limiter.Allow())
}
