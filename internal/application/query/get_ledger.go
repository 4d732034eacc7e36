package query

import (
	"context"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEDGER QUERY
// Журнал изменений баланса пользователя для админского аудита.
// ══════════════════════════════════════════════════════════════════════════════

// LedgerEntryDTO - запись журнала.
type LedgerEntryDTO struct {
	ID               string    `json:"id"`
	Delta            int       `json:"delta"`
	Reason           string    `json:"reason"`
	ResultingBalance int       `json:"resulting_balance"`
	ActorID          string    `json:"actor_id"`
	ActorKind        string    `json:"actor_kind"`
	CreatedAt        time.Time `json:"created_at"`
}

// GetLedgerHandler возвращает последние записи журнала.
type GetLedgerHandler struct {
	users   user.Repository
	entries ledger.Repository
}

// NewGetLedgerHandler создаёт обработчик.
func NewGetLedgerHandler(users user.Repository, entries ledger.Repository) *GetLedgerHandler {
	return &GetLedgerHandler{users: users, entries: entries}
}

// Handle возвращает до limit записей, новые первыми (limit 0 → 50).
func (h *GetLedgerHandler) Handle(ctx context.Context, userID string, limit int) ([]LedgerEntryDTO, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if _, err := h.users.Get(ctx, userID); err != nil {
		return nil, err
	}

	list, err := h.entries.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, shared.Persistence("ledger", "ListByUser", err)
	}

	out := make([]LedgerEntryDTO, len(list))
	for i, e := range list {
		out[i] = LedgerEntryDTO{
			ID:               e.ID,
			Delta:            e.Delta,
			Reason:           e.Reason,
			ResultingBalance: e.ResultingBalance,
			ActorID:          e.ActorID,
			ActorKind:        string(e.ActorKind),
			CreatedAt:        e.CreatedAt,
		}
	}
	return out, nil
}
