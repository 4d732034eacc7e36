// Package tier описывает уровни (тиры) участников и их вычисление по балансу.
package tier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

// Tier — именованный порог очков.
type Tier struct {
	ID        string
	Name      string
	MinPoints int
	Order     int
}

// Table — отсортированная по порогу таблица тиров.
// После создания неизменяема, безопасна для конкурентного чтения.
type Table struct {
	tiers []Tier
}

// NewTable проверяет конфигурацию и строит таблицу.
//
// Инварианты:
//   - хотя бы один тир с MinPoints == 0 (любой баланс попадает в тир);
//   - пороги и имена уникальны;
//   - Order строго растёт вместе с MinPoints.
func NewTable(tiers []Tier) (*Table, error) {
	if len(tiers) == 0 {
		return nil, configError("tier table is empty")
	}

	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinPoints < sorted[j].MinPoints
	})

	if sorted[0].MinPoints != 0 {
		return nil, configError(fmt.Sprintf("no tier covers 0 points (lowest threshold is %d)", sorted[0].MinPoints))
	}

	names := make(map[string]struct{}, len(sorted))
	for i, t := range sorted {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, configError("tier name is empty")
		}
		if _, dup := names[name]; dup {
			return nil, configError(fmt.Sprintf("duplicate tier name %q", name))
		}
		names[name] = struct{}{}

		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if t.MinPoints == prev.MinPoints {
			return nil, configError(fmt.Sprintf("tiers %q and %q share threshold %d", prev.Name, t.Name, t.MinPoints))
		}
		if t.Order <= prev.Order {
			return nil, configError(fmt.Sprintf("tier %q order %d does not increase with threshold", t.Name, t.Order))
		}
	}

	return &Table{tiers: sorted}, nil
}

func configError(msg string) error {
	return shared.WrapError("tier", "NewTable", shared.ErrTierConfiguration, msg, nil)
}

// Resolve возвращает тир с наибольшим порогом, не превышающим points.
// Монотонна: больший баланс никогда не даёт меньший тир.
func (t *Table) Resolve(points int) Tier {
	// первый тир, порог которого строго больше points
	idx := sort.Search(len(t.tiers), func(i int) bool {
		return t.tiers[i].MinPoints > points
	})
	if idx == 0 {
		return t.tiers[0]
	}
	return t.tiers[idx-1]
}

// Tiers возвращает копию тиров в порядке возрастания порога.
func (t *Table) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// ByID ищет тир по идентификатору.
func (t *Table) ByID(id string) (Tier, bool) {
	for _, tr := range t.tiers {
		if tr.ID == id {
			return tr, true
		}
	}
	return Tier{}, false
}

// Repository — доступ к конфигурации тиров.
type Repository interface {
	List(ctx context.Context) ([]Tier, error)
	Upsert(ctx context.Context, t Tier) error
}
