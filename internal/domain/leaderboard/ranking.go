package leaderboard

import (
	"context"
	"sort"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Score — агрегированный результат пользователя до присвоения места.
type Score struct {
	UserID string
	Name   string
	Score  int
	// FirstActivity — самая ранняя запись журнала в окне (или вообще,
	// для PeriodAll). Используется для разрешения ничьих.
	FirstActivity time.Time
}

// RankedUser — строка рейтинга.
type RankedUser struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Rank   int    `json:"rank"`
}

// Less задаёт полный порядок рейтинга: больше очков выше, при равенстве
// выше тот, кто раньше начал набирать очки, затем по идентификатору.
func Less(a, b Score) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.FirstActivity.Equal(b.FirstActivity) {
		return a.FirstActivity.Before(b.FirstActivity)
	}
	return a.UserID < b.UserID
}

// Rank сортирует результаты и присваивает места 1..N без пропусков.
// limit <= 0 означает «без ограничения».
func Rank(scores []Score, limit int) []RankedUser {
	sorted := make([]Score, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]RankedUser, len(sorted))
	for i, s := range sorted {
		out[i] = RankedUser{
			UserID: s.UserID,
			Name:   s.Name,
			Score:  s.Score,
			Rank:   i + 1,
		}
	}
	return out
}

// NormalizeLimit приводит лимит к допустимому диапазону.
func NormalizeLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, shared.NewDomainError("leaderboard", "Validate", shared.ErrValueOutOfRange, "limit cannot be negative")
	case limit == 0:
		return DefaultLimit, nil
	case limit > MaxLimit:
		return MaxLimit, nil
	}
	return limit, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// Repository — источник агрегатов для рейтинга.
type Repository interface {
	// AllTime возвращает всех пользователей с их балансом.
	AllTime(ctx context.Context, limit int) ([]Score, error)

	// Windowed суммирует дельты журнала в окне по пользователям,
	// у которых есть хотя бы одна запись в окне.
	Windowed(ctx context.Context, w Window, limit int) ([]Score, error)
}

// Cache — кеш готовых рейтингов. Промах возвращает ok == false.
type Cache interface {
	// Generation возвращает текущее поколение кеша.
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, period Period) ([]RankedUser, bool, error)
	Set(ctx context.Context, gen int64, period Period, ranking []RankedUser) error
	// Invalidate делает все записи предыдущих поколений недоступными.
	Invalidate(ctx context.Context) error
}
