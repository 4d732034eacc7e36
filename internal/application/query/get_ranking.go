// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/connecta-hub/connecta-points/internal/domain/leaderboard"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/pkg/logger"
	"github.com/connecta-hub/connecta-points/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RANKING QUERY
// Рейтинг за период: daily / weekly / monthly / all.
// Оконные периоды суммируют дельты журнала в окне [now-окно, now],
// период all сортирует по текущему балансу.
// ══════════════════════════════════════════════════════════════════════════════

// GetRankingQuery содержит параметры запроса рейтинга.
type GetRankingQuery struct {
	// Period - daily, weekly, monthly или all.
	Period string

	// Limit - количество записей (по умолчанию 10, максимум 100).
	Limit int
}

// RankedUserDTO - строка рейтинга.
type RankedUserDTO struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// GetRankingResult - результат запроса рейтинга.
type GetRankingResult struct {
	Period      string          `json:"period"`
	Entries     []RankedUserDTO `json:"entries"`
	GeneratedAt time.Time       `json:"generated_at"`
	FromCache   bool            `json:"from_cache"`
}

// GetRankingHandler обрабатывает запросы рейтинга.
type GetRankingHandler struct {
	repo  leaderboard.Repository
	cache leaderboard.Cache // может быть nil
	clock timeutil.Clock
	log   *logger.Logger
	group singleflight.Group
}

// NewGetRankingHandler создаёт обработчик. cache может быть nil.
func NewGetRankingHandler(repo leaderboard.Repository, cache leaderboard.Cache, clock timeutil.Clock, log *logger.Logger) *GetRankingHandler {
	return &GetRankingHandler{
		repo:  repo,
		cache: cache,
		clock: clock,
		log:   log.With(logger.Component("ranking")),
	}
}

// Handle выполняет запрос. Неизвестный период отклоняется до обращения
// к хранилищу.
func (h *GetRankingHandler) Handle(ctx context.Context, q GetRankingQuery) (*GetRankingResult, error) {
	period, err := leaderboard.ParsePeriod(q.Period)
	if err != nil {
		return nil, err
	}
	limit, err := leaderboard.NormalizeLimit(q.Limit)
	if err != nil {
		return nil, err
	}

	ranking, fromCache, err := h.ranking(ctx, period)
	if err != nil {
		return nil, err
	}

	if len(ranking) > limit {
		ranking = ranking[:limit]
	}

	entries := make([]RankedUserDTO, len(ranking))
	for i, r := range ranking {
		entries[i] = RankedUserDTO{Rank: r.Rank, UserID: r.UserID, Name: r.Name, Score: r.Score}
	}

	return &GetRankingResult{
		Period:      string(period),
		Entries:     entries,
		GeneratedAt: h.clock.Now(),
		FromCache:   fromCache,
	}, nil
}

// Warm пересчитывает все периоды и кладёт их в кеш.
func (h *GetRankingHandler) Warm(ctx context.Context) error {
	for _, p := range leaderboard.Periods {
		if _, _, err := h.ranking(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// ranking возвращает полный (до MaxLimit) рейтинг периода.
func (h *GetRankingHandler) ranking(ctx context.Context, period leaderboard.Period) ([]leaderboard.RankedUser, bool, error) {
	var gen int64
	useCache := h.cache != nil
	if useCache {
		g, err := h.cache.Generation(ctx)
		if err != nil {
			h.log.Warn("ranking cache unavailable", logger.Err(err))
			useCache = false
		} else {
			gen = g
			if cached, ok, err := h.cache.Get(ctx, gen, period); err == nil && ok {
				return cached, true, nil
			}
		}
	}

	key := fmt.Sprintf("%s:%d", period, gen)
	v, err, _ := h.group.Do(key, func() (interface{}, error) {
		return h.compute(ctx, period, gen, useCache)
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]leaderboard.RankedUser), false, nil
}

func (h *GetRankingHandler) compute(ctx context.Context, period leaderboard.Period, gen int64, useCache bool) ([]leaderboard.RankedUser, error) {
	var (
		scores []leaderboard.Score
		err    error
	)
	if period.IsWindowed() {
		scores, err = h.repo.Windowed(ctx, period.WindowAt(h.clock.Now()), leaderboard.MaxLimit)
	} else {
		scores, err = h.repo.AllTime(ctx, leaderboard.MaxLimit)
	}
	if err != nil {
		return nil, shared.Persistence("leaderboard", "GetRanking", err)
	}

	ranking := leaderboard.Rank(scores, leaderboard.MaxLimit)

	if useCache {
		if err := h.cache.Set(ctx, gen, period, ranking); err != nil {
			h.log.Warn("failed to cache ranking", logger.Period(string(period)), logger.Err(err))
		}
	}
	return ranking, nil
}
