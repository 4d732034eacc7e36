package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/tier"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOGUE REPOSITORIES
// ══════════════════════════════════════════════════════════════════════════════

// TierRepository implements tier.Repository.
type TierRepository struct {
	q Querier
}

// NewTierRepository creates a new TierRepository.
func NewTierRepository(conn *Connection) *TierRepository {
	return &TierRepository{q: conn.Pool()}
}

// List returns tiers ordered by threshold.
func (r *TierRepository) List(ctx context.Context) ([]tier.Tier, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, min_points, sort_order FROM tiers ORDER BY min_points`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}
	defer rows.Close()

	var tiers []tier.Tier
	for rows.Next() {
		var t tier.Tier
		if err := rows.Scan(&t.ID, &t.Name, &t.MinPoints, &t.Order); err != nil {
			return nil, fmt.Errorf("failed to scan tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// Upsert creates a tier or updates the existing one with the same name.
func (r *TierRepository) Upsert(ctx context.Context, t tier.Tier) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO tiers (id, name, min_points, sort_order)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			min_points = EXCLUDED.min_points,
			sort_order = EXCLUDED.sort_order
	`, t.ID, t.Name, t.MinPoints, t.Order)
	if err != nil {
		return fmt.Errorf("failed to upsert tier %q: %w", t.Name, err)
	}
	return nil
}

// AchievementRepository implements achievement.Repository.
type AchievementRepository struct {
	q Querier
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{q: conn.Pool()}
}

// List returns definitions in insertion order.
func (r *AchievementRepository) List(ctx context.Context) ([]achievement.Definition, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, description, criteria, points, position
		FROM achievements
		ORDER BY position, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var defs []achievement.Definition
	for rows.Next() {
		var d achievement.Definition
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Criteria, &d.Points, &d.Position); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// Upsert creates a definition or updates the one with the same name.
// An existing definition keeps its id and catalogue position.
func (r *AchievementRepository) Upsert(ctx context.Context, d achievement.Definition) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO achievements (id, name, description, criteria, points, position)
		VALUES ($1, $2, $3, $4, $5,
			COALESCE(NULLIF($6, 0), (SELECT COALESCE(MAX(position), 0) + 1 FROM achievements)))
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			criteria = EXCLUDED.criteria,
			points = EXCLUDED.points
	`, d.ID, d.Name, d.Description, d.Criteria, d.Points, d.Position)
	if err != nil {
		return fmt.Errorf("failed to upsert achievement %q: %w", d.Name, err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCKS
// ══════════════════════════════════════════════════════════════════════════════

// UnlockRepository implements achievement.UnlockRepository.
type UnlockRepository struct {
	q Querier
}

// NewUnlockRepository creates a new UnlockRepository.
func NewUnlockRepository(conn *Connection) *UnlockRepository {
	return &UnlockRepository{q: conn.Pool()}
}

// Unlock records the pair once. The primary key turns a repeated unlock
// into a no-op reported as created == false.
func (r *UnlockRepository) Unlock(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`, userID, achievementID, at)
	if err != nil {
		return false, fmt.Errorf("failed to record unlock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByUser returns unlocks ordered by time.
func (r *UnlockRepository) ListByUser(ctx context.Context, userID string) ([]achievement.UserAchievement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT ua.user_id, ua.achievement_id, a.name, ua.earned_at
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = $1
		ORDER BY ua.earned_at, a.position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	defer rows.Close()

	var out []achievement.UserAchievement
	for rows.Next() {
		var ua achievement.UserAchievement
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &ua.Name, &ua.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlock: %w", err)
		}
		out = append(out, ua)
	}
	return out, rows.Err()
}
