// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование чисел, работа с временем академии.
package common

import (
	"math"
	"time"
)

// DefaultTimezone: часовой пояс академии по умолчанию.
const DefaultTimezone = "Europe/Minsk"

// Clock отдаёт текущее время в часовом поясе академии.
// Все «календарные» правила (бонусные выходные, стрик, один скан в день)
// считаются по этому поясу, а не по поясу сервера.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock создаёт часы для указанного пояса.
// Если пояс не загрузился, используем UTC+3 вручную (Минск без перехода на летнее время).
func NewClock(timezone string) *Clock {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.FixedZone("+03", 3*60*60)
	}
	return &Clock{loc: loc, now: time.Now}
}

// NewFixedClock возвращает часы, которые всегда показывают now (для тестов и пересчётов).
func NewFixedClock(now time.Time, loc *time.Location) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return now }}
}

// Location возвращает часовой пояс академии.
func (c *Clock) Location() *time.Location { return c.loc }

// Now возвращает текущее время в поясе академии.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today возвращает полночь текущей календарной даты академии.
func (c *Clock) Today() time.Time {
	return DateOf(c.Now())
}

// DateOf отрезает время, оставляя полночь той же даты в том же поясе.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay сравнивает календарные даты (год, месяц, день) без учёта времени.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsBonusDay истинно в субботу и воскресенье, в эти дни XP удваивается.
func IsBonusDay(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// FormatDate форматирует дату как "02.01.2006".
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// pluralForm выбирает одну из трёх форм по правилам русского языка:
//   - 1, 21, 31 (но не 11) → one
//   - 2-4, 22-24 (но не 12-14) → few
//   - остальное → many
func pluralForm(n int64, one, few, many string) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}
