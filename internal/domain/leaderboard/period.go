// Package leaderboard строит рейтинги участников за период.
// Рейтинг — чистое чтение: он считается из баланса или из журнала
// и никогда ничего не изменяет.
package leaderboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

// Period — окно рейтинга.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAll     Period = "all"
)

// Periods перечисляет все допустимые периоды.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAll}

// ParsePeriod разбирает период. Неизвестное значение — shared.ErrUnknownPeriod.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return PeriodDaily, nil
	case "weekly", "week":
		return PeriodWeekly, nil
	case "monthly", "month":
		return PeriodMonthly, nil
	case "all", "all-time", "alltime":
		return PeriodAll, nil
	}
	return "", shared.WrapError("leaderboard", "ParsePeriod", shared.ErrUnknownPeriod,
		fmt.Sprintf("period %q", s), nil)
}

// Length возвращает длину скользящего окна. Для PeriodAll — 0.
func (p Period) Length() time.Duration {
	switch p {
	case PeriodDaily:
		return 24 * time.Hour
	case PeriodWeekly:
		return 7 * 24 * time.Hour
	case PeriodMonthly:
		return 30 * 24 * time.Hour
	}
	return 0
}

// IsWindowed возвращает true для периодов с ограниченным окном.
func (p Period) IsWindowed() bool {
	return p.Length() > 0
}

// Window — интервал [From, To] включительно.
type Window struct {
	From time.Time
	To   time.Time
}

// WindowAt возвращает окно периода, заканчивающееся в now.
func (p Period) WindowAt(now time.Time) Window {
	return Window{From: now.Add(-p.Length()), To: now}
}

// Contains проверяет попадание момента в окно.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

func (p Period) String() string {
	return string(p)
}
