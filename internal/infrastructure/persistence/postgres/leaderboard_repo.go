package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/connecta-hub/connecta-points/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Repository with aggregate
// queries over users and activity_log. The ORDER BY mirrors leaderboard.Less.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

// AllTime ranks every user by balance. First activity is the earliest
// ledger entry, or the registration time for users without entries.
func (r *LeaderboardRepository) AllTime(ctx context.Context, limit int) ([]leaderboard.Score, error) {
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT u.id, u.name, u.points,
			COALESCE((SELECT MIN(l.created_at) FROM activity_log l WHERE l.user_id = u.id), u.created_at) AS first_activity
		FROM users u
		ORDER BY u.points DESC, first_activity ASC, u.id ASC
		LIMIT NULLIF($1, 0)
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query all-time leaderboard: %w", err)
	}
	return scanScores(rows)
}

// Windowed sums deltas with created_at inside [From, To].
func (r *LeaderboardRepository) Windowed(ctx context.Context, w leaderboard.Window, limit int) ([]leaderboard.Score, error) {
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT u.id, u.name, SUM(l.delta)::INTEGER AS score, MIN(l.created_at) AS first_activity
		FROM activity_log l
		JOIN users u ON u.id = l.user_id
		WHERE l.created_at >= $1 AND l.created_at <= $2
		GROUP BY u.id, u.name
		ORDER BY score DESC, first_activity ASC, u.id ASC
		LIMIT NULLIF($3, 0)
	`, w.From, w.To, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query windowed leaderboard: %w", err)
	}
	return scanScores(rows)
}

func scanScores(rows pgx.Rows) ([]leaderboard.Score, error) {
	defer rows.Close()

	var scores []leaderboard.Score
	for rows.Next() {
		var s leaderboard.Score
		if err := rows.Scan(&s.UserID, &s.Name, &s.Score, &s.FirstActivity); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
