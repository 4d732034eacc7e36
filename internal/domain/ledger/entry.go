// Package ledger — единственный владелец изменения баланса очков.
//
// Каждое изменение баланса сопровождается ровно одной записью журнала
// (Entry). Журнал только дополняется: записи не изменяются и не удаляются.
package ledger

import (
	"context"
	"strings"
	"time"
)

// Причины изменений, которые выставляет сам движок.
const (
	ReasonAdminOverride     = "admin override"
	ReasonAchievementUnlock = "achievement unlock"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTOR
// ══════════════════════════════════════════════════════════════════════════════

// ActorKind различает источник изменения.
type ActorKind string

const (
	ActorSystem ActorKind = "system"
	ActorAdmin  ActorKind = "admin"
	ActorUser   ActorKind = "user"
)

// Actor — кто инициировал изменение.
type Actor struct {
	ID   string
	Kind ActorKind
}

// SystemActor — автоматические изменения (бонусы за достижения).
var SystemActor = Actor{ID: "system", Kind: ActorSystem}

// AdminActor возвращает актора административной правки.
func AdminActor(id string) Actor {
	return Actor{ID: id, Kind: ActorAdmin}
}

// UserActor возвращает актора для события, инициированного вызывающим кодом.
// Пустой id означает системное событие.
func UserActor(id string) Actor {
	if strings.TrimSpace(id) == "" {
		return SystemActor
	}
	return Actor{ID: id, Kind: ActorUser}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry — неизменяемая запись журнала.
type Entry struct {
	ID               string
	UserID           string
	Delta            int
	Reason           string
	ResultingBalance int
	ActorID          string
	ActorKind        ActorKind
	CreatedAt        time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// Repository — хранилище журнала. Только добавление и чтение.
type Repository interface {
	// Append добавляет запись в текущую транзакцию.
	Append(ctx context.Context, e Entry) error

	// ListByUser возвращает записи пользователя, новые первыми.
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// Auditor записывает запись журнала и оставляет аудиторский след.
// Ошибка записи прерывает единицу работы.
type Auditor interface {
	Record(ctx context.Context, entries Repository, e Entry) error
}
