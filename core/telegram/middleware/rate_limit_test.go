package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBurstThenRefill(t *testing.T) {
	l := NewLimiter(time.Second, 2)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.Allow(1, now))
	assert.True(t, l.Allow(1, now))
	assert.False(t, l.Allow(1, now))

	assert.True(t, l.Allow(2, now), "users have separate buckets")
	assert.True(t, l.Allow(1, now.Add(time.Second)))
}

func TestLimiterForgetDropsIdleUsers(t *testing.T) {
	l := NewLimiter(time.Second, 1)
	now := time.Unix(1_700_000_000, 0)
	l.Allow(1, now)
	l.Allow(2, now)

	assert.Equal(t, 0, l.Forget(now))
	assert.Equal(t, 2, l.Forget(now.Add(2*time.Second)))
}
