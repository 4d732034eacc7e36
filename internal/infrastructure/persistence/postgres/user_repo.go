package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository on top of a Querier, so the same
// code serves both the pool and an open transaction.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a repository bound to the pool.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{q: conn.Pool()}
}

const userColumns = `id, name, points, tier_id, created_at, updated_at`

func (r *UserRepository) get(ctx context.Context, query, id string) (*user.User, error) {
	var u user.User
	err := r.q.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Points, &u.TierID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// Get returns the user or shared.ErrUserNotFound.
func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetForUpdate locks the user row until the surrounding transaction ends.
// Outside a transaction the lock is released immediately.
func (r *UserRepository) GetForUpdate(ctx context.Context, id string) (*user.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Name, u.Points, u.TierID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("user", "Create", shared.ErrAlreadyExists, u.ID)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdatePoints stores a new balance.
func (r *UserRepository) UpdatePoints(ctx context.Context, id string, points int, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET points = $2, updated_at = $3 WHERE id = $1`, id, points, at)
	if err != nil {
		if IsCheckViolation(err) {
			return fmt.Errorf("%w: negative balance for %s", shared.ErrInvalidDelta, id)
		}
		return fmt.Errorf("failed to update points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	return nil
}

// UpdateTier stores the resolved tier.
func (r *UserRepository) UpdateTier(ctx context.Context, id, tierID string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET tier_id = $2, updated_at = $3 WHERE id = $1`, id, tierID, at)
	if err != nil {
		return fmt.Errorf("failed to update tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	return nil
}
