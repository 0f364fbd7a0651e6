// tracker.go считает серию тренировок по дням.
// Сравниваются только календарные даты в поясе академии, время суток не важно.
package streak

import (
	"time"

	"volleylevel.by/academy-bot/internal/common"
)

// NextStreak возвращает серию после тренировки в день today.
//
//	последняя тренировка вчера   → current + 1
//	последняя тренировка сегодня → current (вторая тренировка за день)
//	раньше или ни разу           → 1
func NextStreak(last *time.Time, today time.Time, current int) int {
	if last == nil {
		return 1
	}
	if common.SameDay(*last, today) {
		if current < 1 {
			return 1
		}
		return current
	}
	if common.SameDay(*last, today.AddDate(0, 0, -1)) {
		return current + 1
	}
	return 1
}

// IsAlive сообщает, что серию ещё можно продолжить (тренировка была сегодня или вчера).
func IsAlive(last *time.Time, today time.Time) bool {
	if last == nil {
		return false
	}
	return common.SameDay(*last, today) || common.SameDay(*last, today.AddDate(0, 0, -1))
}
