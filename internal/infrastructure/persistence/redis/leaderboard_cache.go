package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/connecta-hub/connecta-points/internal/domain/leaderboard"
	"github.com/connecta-hub/connecta-points/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING CACHE
// ══════════════════════════════════════════════════════════════════════════════

const (
	// PrefixLeaderboard namespaces every ranking key.
	PrefixLeaderboard = "leaderboard:"

	keyGeneration = PrefixLeaderboard + "generation"

	// TTLRanking bounds how long a computed ranking may be served.
	TTLRanking = time.Minute
)

// RankingKey returns the key a ranking is stored under.
func RankingKey(gen int64, period leaderboard.Period) string {
	return PrefixLeaderboard + "ranking:" + strconv.FormatInt(gen, 10) + ":" + string(period)
}

// RankingCache implements leaderboard.Cache.
// All calls go through a circuit breaker: when Redis is down the breaker
// opens and callers fall back to computing rankings from the database.
type RankingCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

// NewRankingCache creates a ranking cache. ttl <= 0 uses TTLRanking,
// a nil breaker disables short-circuiting.
func NewRankingCache(cache *Cache, ttl time.Duration, breaker *circuitbreaker.CircuitBreaker) *RankingCache {
	if ttl <= 0 {
		ttl = TTLRanking
	}
	return &RankingCache{cache: cache, ttl: ttl, breaker: breaker}
}

func (r *RankingCache) do(ctx context.Context, fn func(context.Context) error) error {
	if r.breaker == nil {
		return fn(ctx)
	}
	return r.breaker.Execute(ctx, fn)
}

// Generation returns the current generation; a missing key is generation 0.
func (r *RankingCache) Generation(ctx context.Context) (int64, error) {
	var gen int64
	err := r.do(ctx, func(ctx context.Context) error {
		v, err := r.cache.Client().Get(ctx, keyGeneration).Int64()
		if errors.Is(err, redis.Nil) {
			gen = 0
			return nil
		}
		gen = v
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("ranking cache generation: %w", err)
	}
	return gen, nil
}

// Get returns a cached ranking for the generation and period.
func (r *RankingCache) Get(ctx context.Context, gen int64, period leaderboard.Period) ([]leaderboard.RankedUser, bool, error) {
	var ranking []leaderboard.RankedUser
	err := r.do(ctx, func(ctx context.Context) error {
		err := r.cache.GetJSON(ctx, RankingKey(gen, period), &ranking)
		if errors.Is(err, ErrCacheMiss) {
			// a miss is a healthy answer for the breaker
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("ranking cache get: %w", err)
	}
	return ranking, ranking != nil, nil
}

// Set stores a ranking with the configured TTL.
func (r *RankingCache) Set(ctx context.Context, gen int64, period leaderboard.Period, ranking []leaderboard.RankedUser) error {
	if ranking == nil {
		ranking = []leaderboard.RankedUser{}
	}
	err := r.do(ctx, func(ctx context.Context) error {
		return r.cache.SetJSON(ctx, RankingKey(gen, period), ranking, r.ttl)
	})
	if err != nil {
		return fmt.Errorf("ranking cache set: %w", err)
	}
	return nil
}

// Invalidate bumps the generation.
func (r *RankingCache) Invalidate(ctx context.Context) error {
	err := r.do(ctx, func(ctx context.Context) error {
		return r.cache.Client().Incr(ctx, keyGeneration).Err()
	})
	if err != nil {
		return fmt.Errorf("ranking cache invalidate: %w", err)
	}
	return nil
}

var _ leaderboard.Cache = (*RankingCache)(nil)
