package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketdash/etl/pkg/config"
)

func TestDisabledClient(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Enabled: false}}

	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Enabled())
	assert.NoError(t, c.Ping(context.Background()), "disabled client reports healthy")
}

func TestDisabledLimiterAllowsAll(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Enabled: false}}

	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	limiter := NewRateLimiter(c, "etl")
	rl := RateLimitConfig{Key: "stooq", Limit: 5, Window: time.Second}

	for i := 0; i < 20; i++ {
		allowed, remaining, err := limiter.Allow(context.Background(), rl)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, rl.Limit, remaining)
	}
}
