// pluralize.go содержит функции склонения русских числительных
// для текстов бота. Общее правило выбора формы лежит в helpers.go.
package common

import "fmt"

// PluralizeDays возвращает форму слова «день»: 1 день, 3 дня, 5 дней.
func PluralizeDays(n int) string {
	return pluralForm(int64(n), "день", "дня", "дней")
}

// PluralizeTrainings возвращает форму слова «тренировка».
func PluralizeTrainings(n int) string {
	return pluralForm(int64(n), "тренировка", "тренировки", "тренировок")
}

// FormatXP создаёт строку вида "+150 XP" или "-50 XP".
//
// Примеры:
//
//	FormatXP(100) → "+100 XP"
//	FormatXP(-50) → "-50 XP"
func FormatXP(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%s XP", FormatNumber(amount))
	}
	return fmt.Sprintf("%s XP", FormatNumber(amount))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
