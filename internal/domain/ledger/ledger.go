package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/user"
)

// Store — транзакционные репозитории, которые нужны ledger.
// Реализация обязана держать блокировку пользователя, полученную через
// Users().GetForUpdate, до конца транзакции.
type Store interface {
	Users() user.Repository
	Entries() Repository
}

// Ledger применяет изменения баланса.
type Ledger struct {
	auditor Auditor
	now     func() time.Time
	newID   func() string
}

// New создаёт Ledger.
func New(auditor Auditor, now func() time.Time, newID func() string) *Ledger {
	return &Ledger{auditor: auditor, now: now, newID: newID}
}

// ApplyDelta изменяет баланс на delta и записывает ровно одну запись журнала,
// включая нулевые изменения. Отрицательный итог — shared.ErrInvalidDelta,
// при этом ничего не записывается.
func (l *Ledger) ApplyDelta(ctx context.Context, st Store, userID string, delta int, reason string, actor Actor) (Entry, error) {
	if strings.TrimSpace(reason) == "" {
		return Entry{}, shared.NewDomainError("ledger", "ApplyDelta", shared.ErrEmptyValue, "reason is required")
	}

	u, err := lockUser(ctx, st, userID, "ApplyDelta")
	if err != nil {
		return Entry{}, err
	}

	next := u.Points + delta
	if next < 0 {
		return Entry{}, shared.WrapError("ledger", "ApplyDelta", shared.ErrInvalidDelta,
			fmt.Sprintf("balance %d with delta %d", u.Points, delta), nil)
	}

	now := l.now()
	if err := st.Users().UpdatePoints(ctx, userID, next, now); err != nil {
		return Entry{}, shared.Persistence("ledger", "ApplyDelta", err)
	}

	entry := Entry{
		ID:               l.newID(),
		UserID:           userID,
		Delta:            delta,
		Reason:           reason,
		ResultingBalance: next,
		ActorID:          actor.ID,
		ActorKind:        actor.Kind,
		CreatedAt:        now,
	}
	if err := l.auditor.Record(ctx, st.Entries(), entry); err != nil {
		return Entry{}, shared.Persistence("ledger", "ApplyDelta", err)
	}

	return entry, nil
}

// SetAbsolute выставляет баланс в newBalance через ApplyDelta с причиной
// "admin override".
func (l *Ledger) SetAbsolute(ctx context.Context, st Store, userID string, newBalance int, actor Actor) (Entry, error) {
	if newBalance < 0 {
		return Entry{}, shared.WrapError("ledger", "SetAbsolute", shared.ErrInvalidDelta,
			fmt.Sprintf("target balance %d", newBalance), nil)
	}

	u, err := lockUser(ctx, st, userID, "SetAbsolute")
	if err != nil {
		return Entry{}, err
	}

	return l.ApplyDelta(ctx, st, userID, newBalance-u.Points, ReasonAdminOverride, actor)
}

// lockUser читает пользователя под блокировкой. Отсутствие пользователя
// остаётся shared.ErrUserNotFound, любой другой сбой хранилища становится
// shared.ErrPersistence.
func lockUser(ctx context.Context, st Store, userID, op string) (*user.User, error) {
	u, err := st.Users().GetForUpdate(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, shared.Persistence("ledger", op, err)
	}
	return u, nil
}
