// Package audit records ledger entries and leaves a structured trail of
// every balance mutation for admin review.
package audit

import (
	"context"

	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/pkg/logger"
)

// Logger implements ledger.Auditor.
type Logger struct {
	log *logger.Logger
}

// New creates an audit logger.
func New(log *logger.Logger) *Logger {
	return &Logger{log: log.With(logger.Component("audit"))}
}

// Record appends the entry inside the caller's transaction. The entry is
// durable once that transaction commits; a failed append aborts it.
func (a *Logger) Record(ctx context.Context, entries ledger.Repository, e ledger.Entry) error {
	if err := entries.Append(ctx, e); err != nil {
		a.log.Error("failed to append ledger entry",
			logger.UserID(e.UserID),
			logger.Delta(e.Delta),
			logger.Reason(e.Reason),
			logger.Err(err),
		)
		return shared.Persistence("audit", "Record", err)
	}

	a.log.Debug("ledger entry appended",
		logger.String("entry_id", e.ID),
		logger.UserID(e.UserID),
		logger.Delta(e.Delta),
		logger.Balance(e.ResultingBalance),
		logger.Reason(e.Reason),
		logger.ActorID(e.ActorID),
		logger.String("actor_kind", string(e.ActorKind)),
	)
	return nil
}
