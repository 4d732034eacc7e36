package achievement

// Evaluator проверяет каталог против баланса и контекста события.
// Хранит только неизменяемый список, поэтому безопасен для конкурентного использования.
type Evaluator struct {
	catalogue []Achievement
}

// NewEvaluator создаёт оценщик для каталога в порядке вставки.
func NewEvaluator(catalogue []Achievement) *Evaluator {
	c := make([]Achievement, len(catalogue))
	copy(c, catalogue)
	return &Evaluator{catalogue: c}
}

// Evaluate возвращает ещё не разблокированные достижения, условие которых
// выполнено. Порядок совпадает с порядком каталога.
func (e *Evaluator) Evaluate(points int, ctx Context, unlocked map[string]struct{}) []Achievement {
	var out []Achievement
	for _, a := range e.catalogue {
		if _, done := unlocked[a.ID]; done {
			continue
		}
		if a.Criteria.Satisfied(points, ctx) {
			out = append(out, a)
		}
	}
	return out
}

// Catalogue возвращает копию каталога.
func (e *Evaluator) Catalogue() []Achievement {
	c := make([]Achievement, len(e.catalogue))
	copy(c, e.catalogue)
	return c
}

// UnlockedSet строит множество идентификаторов из списка разблокировок.
func UnlockedSet(list []UserAchievement) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, ua := range list {
		set[ua.AchievementID] = struct{}{}
	}
	return set
}
