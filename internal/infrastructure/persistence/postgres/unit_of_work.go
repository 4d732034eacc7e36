package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
	"github.com/connecta-hub/connecta-points/internal/domain/uow"
	"github.com/connecta-hub/connecta-points/internal/domain/user"
)

// UnitOfWork runs each point event in one READ COMMITTED transaction.
// Events for the same user serialize on the row lock taken by
// Users().GetForUpdate; events for different users proceed in parallel.
type UnitOfWork struct {
	conn *Connection
}

// NewUnitOfWork creates a new UnitOfWork.
func NewUnitOfWork(conn *Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

// Do implements uow.UnitOfWork.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx uow.Tx) error) error {
	return u.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(ctx, &txScope{tx: tx})
	})
}

type txScope struct {
	tx pgx.Tx
}

func (s *txScope) Users() user.Repository                 { return &UserRepository{q: s.tx} }
func (s *txScope) Entries() ledger.Repository             { return &LedgerRepository{q: s.tx} }
func (s *txScope) Unlocks() achievement.UnlockRepository { return &UnlockRepository{q: s.tx} }

var _ uow.UnitOfWork = (*UnitOfWork)(nil)
