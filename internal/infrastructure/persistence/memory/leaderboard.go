package memory

import (
	"context"
	"sort"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/leaderboard"
)

// LeaderboardRepository aggregates scores from the in-memory state.
type LeaderboardRepository struct {
	s *Store
}

// AllTime implements leaderboard.Repository.
func (r *LeaderboardRepository) AllTime(_ context.Context, limit int) ([]leaderboard.Score, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	first := make(map[string]time.Time)
	for _, e := range r.s.entries {
		if at, ok := first[e.UserID]; !ok || e.CreatedAt.Before(at) {
			first[e.UserID] = e.CreatedAt
		}
	}

	scores := make([]leaderboard.Score, 0, len(r.s.users))
	for _, u := range r.s.users {
		fa, ok := first[u.ID]
		if !ok {
			fa = u.CreatedAt
		}
		scores = append(scores, leaderboard.Score{
			UserID:        u.ID,
			Name:          u.Name,
			Score:         u.Points,
			FirstActivity: fa,
		})
	}
	return truncate(scores, limit), nil
}

// Windowed implements leaderboard.Repository.
func (r *LeaderboardRepository) Windowed(_ context.Context, w leaderboard.Window, limit int) ([]leaderboard.Score, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byUser := make(map[string]*leaderboard.Score)
	for _, e := range r.s.entries {
		if !w.Contains(e.CreatedAt) {
			continue
		}
		sc, ok := byUser[e.UserID]
		if !ok {
			sc = &leaderboard.Score{
				UserID:        e.UserID,
				Name:          r.s.users[e.UserID].Name,
				FirstActivity: e.CreatedAt,
			}
			byUser[e.UserID] = sc
		}
		sc.Score += e.Delta
		if e.CreatedAt.Before(sc.FirstActivity) {
			sc.FirstActivity = e.CreatedAt
		}
	}

	scores := make([]leaderboard.Score, 0, len(byUser))
	for _, sc := range byUser {
		scores = append(scores, *sc)
	}
	return truncate(scores, limit), nil
}

func truncate(scores []leaderboard.Score, limit int) []leaderboard.Score {
	sort.Slice(scores, func(i, j int) bool {
		return leaderboard.Less(scores[i], scores[j])
	})
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}
