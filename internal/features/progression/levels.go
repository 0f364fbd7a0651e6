// Package progression переводит XP в уровни: общий уровень игрока
// и уровни отдельных навыков. Все функции чистые, состояние хранит rewards.
package progression

import (
	"math"

	"volleylevel.by/academy-bot/internal/common"
)

// Значения формулы по умолчанию (до первой правки админом).
const (
	DefaultXPPerLevel = 1000
	DefaultMultiplier = 1.2
)

// XPConfig задаёт формулу порога уровня XPPerLevel * Multiplier^(level-1).
// Читается заново на каждое начисление и не применяется задним числом.
type XPConfig struct {
	XPPerLevel int64   `json:"xpPerLevel"`
	Multiplier float64 `json:"multiplier"`
}

// DefaultXPConfig возвращает формулу 1000 * 1.2^(level-1).
func DefaultXPConfig() XPConfig {
	return XPConfig{XPPerLevel: DefaultXPPerLevel, Multiplier: DefaultMultiplier}
}

// Validate проверяет, что пороги строго растут.
func (c XPConfig) Validate() error {
	if c.XPPerLevel <= 0 || !(c.Multiplier > 1) || math.IsInf(c.Multiplier, 0) {
		return common.ErrInvalidXPConfig
	}
	return nil
}

// LevelState: часть аккаунта, которую меняет начисление XP.
// LevelXP всегда меньше XPForLevel(Level) для конфига, при котором XP было получено.
type LevelState struct {
	Level   int   `json:"level"`
	LevelXP int64 `json:"xp"`
	TotalXP int64 `json:"totalXp"`
}

// XPForLevel возвращает, сколько XP нужно набрать на уровне level, чтобы перейти на следующий.
// Результат округляется вниз; при переполнении ограничивается math.MaxInt64.
func XPForLevel(level int, cfg XPConfig) int64 {
	if level < 1 {
		level = 1
	}
	v := math.Floor(float64(cfg.XPPerLevel) * math.Pow(cfg.Multiplier, float64(level-1)))
	if v >= math.MaxInt64 || math.IsInf(v, 1) || math.IsNaN(v) {
		return math.MaxInt64
	}
	return int64(v)
}

// ApplyXP добавляет amount к состоянию и поднимает уровень, пока хватает XP.
// За одно начисление можно перескочить несколько уровней. Неположительный amount
// ничего не меняет.
//
// Пример (1000 / 1.2): уровень 1, 900 XP, +150 → уровень 2, 50 XP, всего +150.
func ApplyXP(s LevelState, amount int64, cfg XPConfig) LevelState {
	if s.Level < 1 {
		s.Level = 1
	}
	if amount <= 0 {
		return s
	}

	s.TotalXP += amount
	s.LevelXP += amount

	for {
		need := XPForLevel(s.Level, cfg)
		if need <= 0 || s.LevelXP < need {
			break
		}
		s.LevelXP -= need
		s.Level++
	}
	return s
}

// ProgressPercent: заполненность шкалы уровня, от 0 до 100.
func ProgressPercent(s LevelState, cfg XPConfig) int {
	need := XPForLevel(s.Level, cfg)
	if need <= 0 || s.LevelXP <= 0 {
		return 0
	}
	p := s.LevelXP * 100 / need
	if p > 100 {
		return 100
	}
	return int(p)
}

// RankTitle возвращает звание игрока по уровню.
func RankTitle(level int) string {
	switch {
	case level <= 2:
		return "Новичок"
	case level <= 5:
		return "Игрок основы"
	case level <= 8:
		return "Мастер площадки"
	default:
		return "Легенда волейбола"
	}
}
