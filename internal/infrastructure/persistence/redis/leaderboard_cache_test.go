package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connecta-hub/connecta-points/internal/domain/leaderboard"
	"github.com/connecta-hub/connecta-points/pkg/circuitbreaker"
)

func TestRankingKey(t *testing.T) {
	assert.Equal(t, "leaderboard:ranking:7:weekly", RankingKey(7, leaderboard.PeriodWeekly))
	assert.NotEqual(t, RankingKey(1, leaderboard.PeriodAll), RankingKey(2, leaderboard.PeriodAll))
}

// unreachable points at a closed local port so every command fails fast.
func unreachable() *Cache {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.MaxRetries = -1
	cfg.DialTimeout = 100 * time.Millisecond
	return NewCacheFromClient(NewClient(cfg))
}

func TestRankingCache_BreakerOpensWhenRedisDown(t *testing.T) {
	cache := unreachable()
	defer cache.Close()

	breaker := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour))
	rc := NewRankingCache(cache, 0, breaker)
	ctx := context.Background()

	_, err := rc.Generation(ctx)
	require.Error(t, err)
	_, _, err = rc.Get(ctx, 0, leaderboard.PeriodAll)
	require.Error(t, err)

	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
	err = rc.Invalidate(ctx)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}

func TestNewCache_FailsOnUnreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.MaxRetries = -1
	cfg.DialTimeout = 100 * time.Millisecond

	_, err := NewCache(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrCacheConnection)
}
