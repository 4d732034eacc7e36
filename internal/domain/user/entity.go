// Package user содержит доменную модель участника геймификации.
// Пользователь владеет балансом очков и текущим тиром; изменять баланс
// может только ledger, остальной код читает его.
package user

import (
	"context"
	"strings"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// User — участник с балансом очков.
type User struct {
	ID        string
	Name      string
	Points    int
	TierID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser создаёт пользователя с нулевым балансом.
func NewUser(id, name string, now time.Time) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError("user", "New", shared.ErrInvalidID, "user id is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("user", "New", shared.ErrEmptyValue, "user name is required")
	}
	return &User{
		ID:        id,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasTier возвращает true, если тир уже назначен.
func (u *User) HasTier() bool {
	return u.TierID != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет доступ к пользователям.
// Реализации внутри единицы работы обязаны сериализовать изменения
// одного пользователя (блокировка строки или эквивалент).
type Repository interface {
	// Get возвращает пользователя или shared.ErrUserNotFound.
	Get(ctx context.Context, id string) (*User, error)

	// GetForUpdate возвращает пользователя и удерживает блокировку
	// до конца текущей транзакции.
	GetForUpdate(ctx context.Context, id string) (*User, error)

	// Create сохраняет нового пользователя.
	Create(ctx context.Context, u *User) error

	// UpdatePoints записывает новый баланс.
	UpdatePoints(ctx context.Context, id string, points int, at time.Time) error

	// UpdateTier записывает новый тир.
	UpdateTier(ctx context.Context, id, tierID string, at time.Time) error
}
