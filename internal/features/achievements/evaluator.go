package achievements

// IsSatisfied проверяет все заданные условия. Отсутствующий навык считается нулём.
func IsSatisfied(s Stats, c Conditions) bool {
	if c.MinLevel != nil && s.Level < *c.MinLevel {
		return false
	}
	if c.MinTrainings != nil && s.TrainingsCompleted < *c.MinTrainings {
		return false
	}
	if c.MinStreak != nil && s.Streak < *c.MinStreak {
		return false
	}
	if c.MinTotalXP != nil && s.TotalXP < *c.MinTotalXP {
		return false
	}
	if c.MinSkillValue != nil && s.Skills[c.MinSkillValue.Skill] < c.MinSkillValue.Value {
		return false
	}
	return true
}

// NewlyUnlocked возвращает ачивки, которые ещё не открыты, но уже заслужены.
// Порядок совпадает с порядком defs. Повторный вызов после слияния результата
// в Unlocked вернёт пустой список.
func NewlyUnlocked(s Stats, defs []Definition) []Definition {
	var out []Definition
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if s.Unlocked[d.ID] || seen[d.ID] {
			continue
		}
		if IsSatisfied(s, d.Conditions) {
			seen[d.ID] = true
			out = append(out, d)
		}
	}
	return out
}
