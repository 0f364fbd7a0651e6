// Package achievements хранит определения ачивок и решает, какие из них открыты.
// models.go описывает определение ачивки и её условия.
package achievements

import (
	"time"

	"volleylevel.by/academy-bot/internal/common"
)

// Definition: ачивка, которую можно открыть.
type Definition struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	ImageURL    string     `json:"imageUrl,omitempty" yaml:"image_url"`
	Conditions  Conditions `json:"conditions" yaml:"conditions"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"-"`
}

// Conditions объединяются через И. Пустые условия выполняются всегда.
type Conditions struct {
	MinLevel      *int        `json:"minLevel,omitempty" yaml:"min_level"`
	MinTrainings  *int        `json:"minTrainings,omitempty" yaml:"min_trainings"`
	MinStreak     *int        `json:"minStreak,omitempty" yaml:"min_streak"`
	MinTotalXP    *int64      `json:"minTotalXp,omitempty" yaml:"min_total_xp"`
	MinSkillValue *SkillValue `json:"minSkillValue,omitempty" yaml:"min_skill_value"`
}

// SkillValue: порог по накопленному XP одного навыка.
type SkillValue struct {
	Skill string `json:"skill" yaml:"skill"`
	Value int64  `json:"value" yaml:"value"`
}

// IsEmpty: у ачивки нет ни одного условия.
func (c Conditions) IsEmpty() bool {
	return c.MinLevel == nil && c.MinTrainings == nil && c.MinStreak == nil &&
		c.MinTotalXP == nil && c.MinSkillValue == nil
}

// Validate отклоняет отрицательные пороги и навык без id.
func (c Conditions) Validate() error {
	if c.MinLevel != nil && *c.MinLevel < 0 ||
		c.MinTrainings != nil && *c.MinTrainings < 0 ||
		c.MinStreak != nil && *c.MinStreak < 0 ||
		c.MinTotalXP != nil && *c.MinTotalXP < 0 {
		return common.ErrInvalidConditions
	}
	if c.MinSkillValue != nil && (c.MinSkillValue.Skill == "" || c.MinSkillValue.Value < 0) {
		return common.ErrInvalidConditions
	}
	return nil
}

// Stats: срез аккаунта, по которому проверяются условия.
type Stats struct {
	Level              int
	TrainingsCompleted int
	Streak             int
	TotalXP            int64
	Skills             map[string]int64
	Unlocked           map[string]bool
}

// Int и Int64 упрощают сборку условий в коде и тестах.
func Int(v int) *int       { return &v }
func Int64(v int64) *int64 { return &v }
