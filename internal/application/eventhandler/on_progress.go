package eventhandler

import (
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/pkg/logger"
)

// OnProgressHandler пишет в лог смены тиров и разблокировки достижений.
// Уведомления пользователям находятся вне этого сервиса.
type OnProgressHandler struct {
	log *logger.Logger
}

// NewOnProgressHandler создаёт обработчик.
func NewOnProgressHandler(log *logger.Logger) *OnProgressHandler {
	return &OnProgressHandler{log: log.With(logger.Component("on_progress"))}
}

// Handle реализует shared.EventHandler.
func (h *OnProgressHandler) Handle(event shared.Event) error {
	switch e := event.(type) {
	case shared.TierChangedEvent:
		h.log.Info("tier changed",
			logger.UserID(e.UserID),
			logger.String("old_tier", e.OldTier),
			logger.String("new_tier", e.NewTier),
		)
	case shared.AchievementUnlockedEvent:
		h.log.Info("achievement unlocked",
			logger.UserID(e.UserID),
			logger.Achievement(e.AchievementName),
			logger.Int("bonus", e.BonusPoints),
		)
	}
	return nil
}
