// Package achievement содержит каталог достижений и правила их разблокировки.
package achievement

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

// Achievement — запись каталога. Criteria уже разобрана.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Criteria    Criteria
	Points      int // бонус при разблокировке
	Position    int // порядок вставки в каталог
}

// Definition — сырая запись каталога, как она хранится или приходит из файла.
type Definition struct {
	ID          string
	Name        string
	Description string
	Criteria    string
	Points      int
	Position    int
}

// UserAchievement — факт разблокировки.
type UserAchievement struct {
	UserID        string
	AchievementID string
	Name          string
	EarnedAt      time.Time
}

// Compile разбирает определения в порядке Position и проверяет уникальность имён.
// Ошибки разбора возвращаются вместе с успешно собранными достижениями,
// чтобы вызывающий код мог решить: падать или пропускать.
func Compile(defs []Definition) ([]Achievement, []error) {
	ordered := make([]Definition, len(defs))
	copy(ordered, defs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	out := make([]Achievement, 0, len(ordered))
	var errs []error
	seen := make(map[string]struct{}, len(defs))

	for _, d := range ordered {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			errs = append(errs, shared.WrapError("achievement", "Compile", shared.ErrEmptyValue,
				fmt.Sprintf("achievement %q has empty name", d.ID), nil))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, shared.WrapError("achievement", "Compile", shared.ErrDuplicateAchievement,
				fmt.Sprintf("achievement %q", name), nil))
			continue
		}
		if d.Points < 0 {
			errs = append(errs, shared.WrapError("achievement", "Compile", shared.ErrNegativeValue,
				fmt.Sprintf("achievement %q has negative bonus", name), nil))
			continue
		}
		crit, err := ParseCriteria(d.Criteria)
		if err != nil {
			errs = append(errs, fmt.Errorf("achievement %q: %w", name, err))
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Achievement{
			ID:          d.ID,
			Name:        name,
			Description: d.Description,
			Criteria:    crit,
			Points:      d.Points,
			Position:    d.Position,
		})
	}
	return out, errs
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORIES
// ══════════════════════════════════════════════════════════════════════════════

// Repository — каталог достижений.
type Repository interface {
	// List возвращает определения в порядке вставки.
	List(ctx context.Context) ([]Definition, error)
	// Upsert создаёт или обновляет определение по имени.
	Upsert(ctx context.Context, d Definition) error
}

// UnlockRepository — разблокированные достижения пользователей.
type UnlockRepository interface {
	// Unlock записывает факт разблокировки. created == false означает,
	// что пара (user, achievement) уже была записана.
	Unlock(ctx context.Context, userID, achievementID string, at time.Time) (created bool, err error)

	// ListByUser возвращает разблокировки пользователя по возрастанию времени.
	ListByUser(ctx context.Context, userID string) ([]UserAchievement, error)
}
