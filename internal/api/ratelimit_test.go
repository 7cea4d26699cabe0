package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurstThenDenies(t *testing.T) {
	rl := newRateLimiter(5, 10*time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("caller-a"), "request %d within the window", i)
	}
	assert.False(t, rl.Allow("caller-a"))
}

func TestRateLimiterIsolatesCallers(t *testing.T) {
	rl := newRateLimiter(1, 10*time.Second)

	assert.True(t, rl.Allow("caller-a"))
	assert.False(t, rl.Allow("caller-a"))
	assert.True(t, rl.Allow("caller-b"))
}

func TestRateLimiterPrune(t *testing.T) {
	rl := newRateLimiter(1, time.Second)
	rl.Allow("caller-a")
	rl.Allow("caller-b")

	assert.Equal(t, 0, rl.Prune(time.Minute))
	assert.Equal(t, 2, rl.Prune(0))
	assert.Empty(t, rl.limiters)
}
