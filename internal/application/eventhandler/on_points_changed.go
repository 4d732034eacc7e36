// Package eventhandler содержит обработчики доменных событий.
// Обработчики получают события только после фиксации транзакции и
// выполняют побочные эффекты: сброс кешей и журналирование.
package eventhandler

import (
	"context"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/leaderboard"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON POINTS CHANGED HANDLER
// Любая запись журнала попадает во все окна рейтинга, поэтому после
// каждого события очков кеш рейтинга сбрасывается целиком.
// ═══════════════════════════════════════════════════════════════════════════

// OnPointsChangedHandler сбрасывает кеш рейтинга.
type OnPointsChangedHandler struct {
	cache   leaderboard.Cache
	log     *logger.Logger
	timeout time.Duration
}

// NewOnPointsChangedHandler создаёт обработчик.
func NewOnPointsChangedHandler(cache leaderboard.Cache, log *logger.Logger) *OnPointsChangedHandler {
	return &OnPointsChangedHandler{
		cache:   cache,
		log:     log.With(logger.Component("on_points_changed")),
		timeout: 2 * time.Second,
	}
}

// Handle реализует shared.EventHandler.
func (h *OnPointsChangedHandler) Handle(event shared.Event) error {
	if event.EventType() != shared.EventPointsChanged && event.EventType() != shared.EventCatalogueReloaded {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.cache.Invalidate(ctx); err != nil {
		h.log.Error("failed to invalidate ranking cache",
			logger.UserID(event.AggregateID()),
			logger.Err(err),
		)
		return err
	}
	return nil
}
