package rewards

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"volleylevel.by/academy-bot/internal/features/achievements"
	"volleylevel.by/academy-bot/internal/features/progression"
)

func TestFormatResultShowsFirstAchievement(t *testing.T) {
	res := &Result{
		Account:      &Account{Level: 2},
		XPAwarded:    40,
		IsBonusDay:   true,
		LeveledUp:    true,
		SkillUpdates: map[string]int64{"serve": 20, "block": 20},
		NewlyUnlocked: []achievements.Definition{
			{ID: "a", Title: "Первая тренировка"},
			{ID: "b", Title: "Серия"},
			{ID: "c", Title: "Сотня"},
		},
	}
	text := FormatResult(res, func(id string) string { return map[string]string{"serve": "Подача", "block": "Блок"}[id] })

	assert.Contains(t, text, "+40 XP")
	assert.Contains(t, text, "x2")
	assert.Contains(t, text, "Подача +20")
	assert.Contains(t, text, "Новый уровень: 2")
	assert.Contains(t, text, "Первая тренировка")
	assert.Contains(t, text, "и ещё 2")
	assert.NotContains(t, text, "Сотня")
}

func TestFormatProfile(t *testing.T) {
	acc := &Account{
		Level:              2,
		LevelXP:            600,
		TotalXP:            1600,
		TrainingsCompleted: 5,
		Streak:             3,
		Skills:             map[string]int64{"serve": 2300, "block": 100, "jump": 1},
	}
	text := FormatProfile(acc, progression.DefaultXPConfig(), []string{"block", "serve"}, nil)

	assert.Contains(t, text, "Уровень 2")
	assert.Contains(t, text, "600 / 1 200 XP (50%)")
	assert.Contains(t, text, "Всего: 1 600 XP")
	assert.Contains(t, text, "Серия: 3 дня")
	assert.Contains(t, text, "serve: ур. 10 (макс.)")
	assert.Contains(t, text, "block: ур. 2, 50%")
}

func TestOrderedSkills(t *testing.T) {
	skills := map[string]int64{"serve": 1, "zeta": 1, "alpha": 1, "block": 1}
	assert.Equal(t, []string{"serve", "block", "alpha", "zeta"}, orderedSkills(skills, []string{"serve", "attack", "block"}))
}

func TestFormatHistoryEmpty(t *testing.T) {
	assert.Equal(t, "📒 Тренировок пока нет", FormatHistory(nil))
}
