// Package uow описывает единицу работы: все изменения одного события
// очков фиксируются вместе или не фиксируются вовсе.
package uow

import (
	"context"

	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
)

// Tx — репозитории, привязанные к одной транзакции.
type Tx interface {
	ledger.Store
	Unlocks() achievement.UnlockRepository
}

// UnitOfWork выполняет fn в транзакции. Если fn возвращает ошибку,
// все изменения откатываются. Изменения одного пользователя
// сериализуются: блокировка берётся в Users().GetForUpdate.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
