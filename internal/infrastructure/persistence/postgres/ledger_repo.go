package postgres

import (
	"context"
	"fmt"

	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
)

// LedgerRepository implements ledger.Repository on activity_log.
// The table rejects UPDATE and DELETE at the database level.
type LedgerRepository struct {
	q Querier
}

// NewLedgerRepository creates a repository bound to the pool.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{q: conn.Pool()}
}

// Append inserts one entry.
func (r *LedgerRepository) Append(ctx context.Context, e ledger.Entry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO activity_log (id, user_id, delta, reason, resulting_balance, actor_id, actor_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.UserID, e.Delta, e.Reason, e.ResultingBalance, e.ActorID, string(e.ActorKind), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ListByUser returns the newest entries first. A zero limit returns all.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID string, limit int) ([]ledger.Entry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, delta, reason, resulting_balance, actor_id, actor_kind, created_at
		FROM activity_log
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT NULLIF($2, 0)
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var kind string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &e.ResultingBalance, &e.ActorID, &kind, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.ActorKind = ledger.ActorKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
