package eventhandler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connecta-hub/connecta-points/internal/domain/leaderboard"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/pkg/logger"
)

type invalidatingCache struct {
	leaderboard.Cache
	calls int
	err   error
}

func (c *invalidatingCache) Invalidate(context.Context) error {
	c.calls++
	return c.err
}

func TestOnPointsChanged_InvalidatesCache(t *testing.T) {
	cache := &invalidatingCache{}
	h := NewOnPointsChangedHandler(cache, logger.Discard())
	now := time.Now()

	require.NoError(t, h.Handle(shared.NewPointsChangedEvent("u1", 5, 5, "task", "system", now)))
	require.NoError(t, h.Handle(shared.NewCatalogueReloadedEvent(3, 4, now)))
	require.NoError(t, h.Handle(shared.NewTierChangedEvent("u1", "Bronze", "Silver", now)))

	assert.Equal(t, 2, cache.calls)
}

func TestOnPointsChanged_ReportsFailure(t *testing.T) {
	cache := &invalidatingCache{err: errors.New("redis down")}
	h := NewOnPointsChangedHandler(cache, logger.Discard())

	err := h.Handle(shared.NewPointsChangedEvent("u1", 5, 5, "task", "system", time.Now()))
	assert.EqualError(t, err, "redis down")
}

func TestOnProgress_LogsTransitions(t *testing.T) {
	var buf bytes.Buffer
	h := NewOnProgressHandler(logger.New(logger.Options{Output: &buf}))
	now := time.Now()

	require.NoError(t, h.Handle(shared.NewTierChangedEvent("u1", "Bronze", "Silver", now)))
	require.NoError(t, h.Handle(shared.NewAchievementUnlockedEvent("u1", "a1", "Centurion", 20, now)))

	out := buf.String()
	assert.Contains(t, out, `"new_tier":"Silver"`)
	assert.Contains(t, out, `"achievement":"Centurion"`)
	assert.Contains(t, out, `"bonus":20`)
}
