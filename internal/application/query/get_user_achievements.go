package query

import (
	"context"
	"strings"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER ACHIEVEMENTS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// UserAchievementDTO - разблокированное достижение.
type UserAchievementDTO struct {
	AchievementID string    `json:"achievement_id"`
	Name          string    `json:"name"`
	EarnedAt      time.Time `json:"earned_at"`
}

// GetUserAchievementsHandler возвращает достижения пользователя.
type GetUserAchievementsHandler struct {
	users   user.Repository
	unlocks achievement.UnlockRepository
}

// NewGetUserAchievementsHandler создаёт обработчик.
func NewGetUserAchievementsHandler(users user.Repository, unlocks achievement.UnlockRepository) *GetUserAchievementsHandler {
	return &GetUserAchievementsHandler{users: users, unlocks: unlocks}
}

// Handle выполняет запрос. Неизвестный пользователь — shared.ErrUserNotFound.
func (h *GetUserAchievementsHandler) Handle(ctx context.Context, userID string) ([]UserAchievementDTO, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, shared.NewDomainError("achievement", "List", shared.ErrInvalidID, "user id is required")
	}
	if _, err := h.users.Get(ctx, userID); err != nil {
		return nil, err
	}

	list, err := h.unlocks.ListByUser(ctx, userID)
	if err != nil {
		return nil, shared.Persistence("achievement", "List", err)
	}

	out := make([]UserAchievementDTO, len(list))
	for i, ua := range list {
		out[i] = UserAchievementDTO{
			AchievementID: ua.AchievementID,
			Name:          ua.Name,
			EarnedAt:      ua.EarnedAt,
		}
	}
	return out, nil
}
