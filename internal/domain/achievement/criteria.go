package achievement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA
// ══════════════════════════════════════════════════════════════════════════════

// Criteria — условие разблокировки. Строка из каталога разбирается один раз
// при загрузке, дальше оценивается только типизированная форма.
type Criteria interface {
	// Satisfied проверяет условие для баланса и контекста события.
	Satisfied(points int, ctx Context) bool
	String() string
	isCriteria()
}

// Op — оператор сравнения для порогового условия.
type Op string

const (
	OpGTE Op = ">="
	OpGT  Op = ">"
	OpEQ  Op = "=="
)

// FieldPoints — поле, которое всегда читается из текущего баланса.
const FieldPoints = "points"

// Threshold — сравнение числового поля с константой, например "points >= 500".
type Threshold struct {
	Field string
	Op    Op
	Value int
}

func (Threshold) isCriteria() {}

// Satisfied implements Criteria.
func (c Threshold) Satisfied(points int, ctx Context) bool {
	actual := points
	if c.Field != FieldPoints {
		actual = ctx.Counter(c.Field)
	}
	switch c.Op {
	case OpGT:
		return actual > c.Value
	case OpEQ:
		return actual == c.Value
	default:
		return actual >= c.Value
	}
}

func (c Threshold) String() string {
	return fmt.Sprintf("%s %s %d", c.Field, c.Op, c.Value)
}

// NamedPredicate — именованный флаг, который вызывающий код выставляет
// в контексте события, например "first_project".
type NamedPredicate struct {
	Key string
}

func (NamedPredicate) isCriteria() {}

// Satisfied implements Criteria.
func (c NamedPredicate) Satisfied(_ int, ctx Context) bool {
	return ctx.Has(c.Key)
}

func (c NamedPredicate) String() string {
	return c.Key
}

var identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ParseCriteria разбирает строку условия.
//
// Поддерживаемые формы:
//
//	points 500            → Threshold{points >= 500}
//	comments_count >= 50  → Threshold{comments_count >= 50}
//	tasks_done > 3        → Threshold{tasks_done > 3}
//	first_project         → NamedPredicate{first_project}
//
// Всё остальное — shared.ErrUnknownCriteria.
func ParseCriteria(raw string) (Criteria, error) {
	fields := strings.Fields(strings.ToLower(raw))

	switch len(fields) {
	case 1:
		if identRe.MatchString(fields[0]) && fields[0] != FieldPoints {
			return NamedPredicate{Key: fields[0]}, nil
		}
	case 2:
		if identRe.MatchString(fields[0]) {
			if v, err := strconv.Atoi(fields[1]); err == nil {
				return Threshold{Field: fields[0], Op: OpGTE, Value: v}, nil
			}
		}
	case 3:
		if !identRe.MatchString(fields[0]) {
			break
		}
		op, ok := parseOp(fields[1])
		if !ok {
			break
		}
		if v, err := strconv.Atoi(fields[2]); err == nil {
			return Threshold{Field: fields[0], Op: op, Value: v}, nil
		}
	}

	return nil, shared.WrapError("achievement", "ParseCriteria", shared.ErrUnknownCriteria,
		fmt.Sprintf("cannot parse %q", raw), nil)
}

func parseOp(s string) (Op, bool) {
	switch s {
	case ">=":
		return OpGTE, true
	case ">":
		return OpGT, true
	case "==", "=":
		return OpEQ, true
	}
	return "", false
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

// Context — данные события, которые вызывающий код передаёт для оценки
// именованных условий и счётчиков.
type Context struct {
	Predicates map[string]bool `json:"predicates,omitempty"`
	Counters   map[string]int  `json:"counters,omitempty"`
}

// Has возвращает значение именованного флага.
func (c Context) Has(key string) bool {
	return c.Predicates[key]
}

// Counter возвращает значение счётчика; отсутствующий счётчик равен 0.
func (c Context) Counter(field string) int {
	return c.Counters[field]
}
